package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
	"github.com/cultivate-research/fsi-screener/internal/fetch"
	"github.com/cultivate-research/fsi-screener/internal/llm"
	"github.com/cultivate-research/fsi-screener/internal/manifest"
	"github.com/cultivate-research/fsi-screener/internal/textstore"
)

// fakeJudge implements llm.Client with canned strict-JSON verdicts: pages
// mentioning a food bank are included, everything else excluded.
type fakeJudge struct {
	calls atomic.Int64
}

func (f *fakeJudge) GenerateContent(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "OK", nil
}

func (f *fakeJudge) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.calls.Add(1)
	if strings.Contains(prompt, "Food Bank") {
		return `{"decision":"include","confidence":5,"reasons":["Own site of a food bank"],"evidence_quotes":["Alpha Food Bank"],"organisation_name":"Alpha Food Bank","organisation_type":"food_bank","is_ongoing":true,"site_owner_is_initiative":true,"notes":""}`, nil
	}
	return `{"decision":"exclude","confidence":4,"reasons":["News article about an initiative"],"evidence_quotes":[],"organisation_name":null,"organisation_type":null,"is_ongoing":null,"site_owner_is_initiative":null,"notes":""}`, nil
}

func (f *fakeJudge) GetModel(_ llm.ModelTier) string { return "fake" }
func (f *fakeJudge) Close() error                    { return nil }

func writeInput(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

// fastOptions returns options with pacing shrunk so tests do not sleep.
func fastOptions(inputDir, scrapedDir string) Options {
	return Options{
		InputDir:      inputDir,
		ScrapedDir:    scrapedDir,
		Pause:         fetch.PauseRange{Min: time.Millisecond, Max: 2 * time.Millisecond},
		ClassifyPause: time.Nanosecond,
		LLM:           &fakeJudge{},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/london":
			fmt.Fprint(w, `<html><head><title>Alpha</title></head><body><nav>Menu</nav><p>Alpha Food Bank shares surplus food.</p></body></html>`)
		case "/paris":
			fmt.Fprint(w, `<html><body><p>A newspaper piece describing a local project.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	inputDir := t.TempDir()
	writeInput(t, filepath.Join(inputDir, "London.csv"),
		"Name,URL\nAlpha,"+server.URL+"/london\n")
	writeInput(t, filepath.Join(inputDir, "Paris.csv"),
		"Name,URL\nBeta,"+server.URL+"/paris\n")

	scrapedDir := filepath.Join(t.TempDir(), "scraped")
	opts := fastOptions(inputDir, scrapedDir)

	summary, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Scrape.Batches)
	assert.Equal(t, 2, summary.Scrape.Fetched)
	assert.Equal(t, 2, summary.Screening.Classified)
	assert.Equal(t, 1, summary.Screening.Included)
	assert.Equal(t, 1, summary.Combined)

	// One ledger per batch, one entry each.
	entries, err := manifest.Read(filepath.Join(scrapedDir, "London", manifest.Filename))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 200, entries[0].Status)
	assert.NotEmpty(t, entries[0].TextFile)
	assert.Equal(t, "Alpha", entries[0].Title)

	// Combined dataset: exactly the London row, with provenance.
	records := readCSVFile(t, filepath.Join(scrapedDir, "combined_dataset.csv"))
	require.Len(t, records, 2)
	header, row := records[0], records[1]
	assert.Equal(t, "Source File", header[len(header)-1])
	assert.Equal(t, "London.csv", row[len(row)-1])

	nameIdx, cityIdx := -1, -1
	for i, col := range header {
		switch col {
		case "Name":
			nameIdx = i
		case "City":
			cityIdx = i
		}
	}
	require.GreaterOrEqual(t, nameIdx, 0)
	require.GreaterOrEqual(t, cityIdx, 0)
	assert.Equal(t, "Alpha", row[nameIdx])
	// City never existed in the source schema; marked, not blank.
	assert.Equal(t, "n/a", row[cityIdx])

	// Run summary written alongside the artifacts.
	_, err = os.Stat(filepath.Join(scrapedDir, SummaryFilename))
	assert.NoError(t, err)
}

func TestScrape_SkipsBatchWithoutURLColumn(t *testing.T) {
	inputDir := t.TempDir()
	writeInput(t, filepath.Join(inputDir, "cities.csv"), "City,Country\nLondon,UK\n")

	scrapedDir := filepath.Join(t.TempDir(), "scraped")
	stats, err := Scrape(context.Background(), fastOptions(inputDir, scrapedDir))
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Batches)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Attempted)
}

func TestScrape_RecordsErrorStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	inputDir := t.TempDir()
	writeInput(t, filepath.Join(inputDir, "batch.csv"), "Name,URL\na,"+server.URL+"/x\n")

	scrapedDir := filepath.Join(t.TempDir(), "scraped")
	stats, err := Scrape(context.Background(), fastOptions(inputDir, scrapedDir))
	require.NoError(t, err)

	// A 410 still reaches the server, so the body is processed and stored
	// with the status recorded verbatim.
	assert.Equal(t, 1, stats.Fetched)

	entries, err := manifest.Read(filepath.Join(scrapedDir, "batch", manifest.Filename))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusGone, entries[0].Status)
}

func TestScrape_SkipExistingAvoidsRefetch(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "<html><body>page</body></html>")
	}))
	defer server.Close()

	url := server.URL + "/page"
	inputDir := t.TempDir()
	writeInput(t, filepath.Join(inputDir, "batch.csv"), "Name,URL\na,"+url+"\n")

	scrapedDir := filepath.Join(t.TempDir(), "scraped")
	store := textstore.New(scrapedDir)
	_, err := store.Write("batch", contentid.ForURL(url), "already fetched")
	require.NoError(t, err)

	opts := fastOptions(inputDir, scrapedDir)
	opts.SkipExisting = true

	stats, err := Scrape(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, int64(0), hits.Load())
	assert.Equal(t, 1, stats.Reused)

	// The skipped URL still appears in the ledger exactly once.
	entries, err := manifest.Read(filepath.Join(scrapedDir, "batch", manifest.Filename))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, url, entries[0].URL)
	assert.NotEmpty(t, entries[0].TextFile)
}

func TestClassify_ResumeSkipsStoredDecisions(t *testing.T) {
	scrapedDir := filepath.Join(t.TempDir(), "scraped")
	store := textstore.New(scrapedDir)
	_, err := store.Write("batch", contentid.ForURL("https://a.org"), "Alpha Food Bank shares food.")
	require.NoError(t, err)

	judge := &fakeJudge{}
	opts := fastOptions(t.TempDir(), scrapedDir)
	opts.LLM = judge

	stats, err := Classify(context.Background(), opts, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Classified)
	assert.Equal(t, int64(1), judge.calls.Load())

	// A second pass resumes from the store without new service calls.
	stats, err = Classify(context.Background(), opts, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Classified)
	assert.Equal(t, 1, stats.Reused)
	assert.Equal(t, int64(1), judge.calls.Load())

	// Refresh replaces the stored decision wholesale.
	opts.Refresh = true
	stats, err = Classify(context.Background(), opts, "run-3")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Classified)
	assert.Equal(t, int64(2), judge.calls.Load())
}

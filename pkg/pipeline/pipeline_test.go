package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/yomikae/pkg/index"
	"github.com/coolbeans/yomikae/pkg/yomikae"
)

const runnerLawXML = `<?xml version="1.0" encoding="UTF-8"?>
<Law>
  <LawNum>令和元年法律第一号</LawNum>
  <LawBody>
    <LawTitle>試験法</LawTitle>
    <MainProvision>
      <Article Num="1">
        <Paragraph Num="1"><ParagraphSentence><Sentence>この法律は、試験のために定める。</Sentence></ParagraphSentence></Paragraph>
      </Article>
      <Article Num="2">
        <Paragraph Num="1"><ParagraphSentence><Sentence>第一条中「試験」とあるのは「検定」と読み替えるものとする。</Sentence></ParagraphSentence></Paragraph>
      </Article>
      <Article Num="3">
        <Paragraph Num="1"><ParagraphSentence><Sentence>第二条中「甲」、「丙」とあるのは、それぞれ「乙」と読み替えるものとする。</Sentence></ParagraphSentence></Paragraph>
      </Article>
      <Article Num="4">
        <Paragraph Num="1">
          <ParagraphSentence><Sentence>次の表の上欄に掲げる規定中同表の中欄に掲げる字句は、それぞれ同表の下欄に掲げる字句に読み替えるものとする。</Sentence></ParagraphSentence>
          <TableStruct><Table>
            <TableRow>
              <TableColumn><Sentence>第一条</Sentence></TableColumn>
              <TableColumn><Sentence>試験</Sentence></TableColumn>
              <TableColumn><Sentence>検定</Sentence></TableColumn>
            </TableRow>
          </Table></TableStruct>
        </Paragraph>
      </Article>
    </MainProvision>
  </LawBody>
</Law>`

type collectSink struct {
	results  []*yomikae.ClauseResult
	failures []*yomikae.ClauseFailure
}

func (s *collectSink) WriteResult(r *yomikae.ClauseResult) error {
	s.results = append(s.results, r)
	return nil
}

func (s *collectSink) WriteFailure(f *yomikae.ClauseFailure) error {
	s.failures = append(s.failures, f)
	return nil
}

func writeLaw(t *testing.T) (string, []index.LawEntry) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "501AC0000000001.xml"), []byte(runnerLawXML), 0644))
	return dir, []index.LawEntry{{Name: "試験法", File: "501AC0000000001.xml"}}
}

func TestRunnerWithoutIndex(t *testing.T) {
	dir, laws := writeLaw(t)
	laws = append(laws, index.LawEntry{File: "missing.xml"})

	metrics := NewMetrics()
	r := NewRunner(RunnerConfig{WorkDir: dir, Workers: 2, Metrics: metrics})
	sink := &collectSink{}
	report, err := r.Run(context.Background(), laws, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, report.LawsAttempted)
	assert.Equal(t, 1, report.LawsSucceeded)
	assert.Equal(t, 1, report.LawsFailed)
	assert.Equal(t, 4, report.Provisions)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 2, report.ClausesParsed)
	assert.Equal(t, 1, report.ClausesFailed)
	assert.Equal(t, 2, report.Pairs)
	assert.Equal(t, 1, report.Reasons[yomikae.ReasonUnbalancedList])
	assert.NotEmpty(t, report.RunID)

	require.Len(t, sink.results, 2)
	assert.Equal(t, "2", sink.results[0].Location.Article)
	assert.Equal(t, "4", sink.results[1].Location.Article)
	pair := sink.results[0].Pairs[0]
	assert.Equal(t, "試験", pair.Original.Text)
	assert.Equal(t, "検定", pair.Replacement.Text)
	require.NotNil(t, pair.Scope)
	assert.Equal(t, yomikae.ScopeUnchecked, pair.Scope.Status)

	require.Len(t, sink.failures, 1)
	assert.Equal(t, "3", sink.failures[0].Location.Article)
	assert.Equal(t, "501AC0000000001", sink.failures[0].Location.LawID)

	assert.Equal(t, "failed", report.Laws[1].Status)
	assert.Contains(t, FormatReport(report), "[FAIL] missing.xml")
	assert.Contains(t, FormatReport(report), "UnbalancedList")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, metrics.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `yomikae_clauses_total{outcome="parsed"} 2`)
	assert.Contains(t, string(data), `yomikae_failures_total{reason="UnbalancedList"} 1`)
	assert.Contains(t, string(data), "yomikae_law_duration_seconds_count 1")
}

func TestRunnerBuildsIndex(t *testing.T) {
	dir, laws := writeLaw(t)
	store := index.NewMemory()
	cached := index.NewCachedValidator(index.NewValidator(store), time.Minute)

	r := NewRunner(RunnerConfig{
		WorkDir: dir,
		Parser:  yomikae.NewParser(cached),
		Indexer: index.NewIndexer(store, nil),
		Cache:   cached.Cache(),
	})
	sink := &collectSink{}
	report, err := r.Run(context.Background(), laws, sink)
	require.NoError(t, err)
	assert.Positive(t, report.Indexed)

	require.Len(t, sink.results, 2)
	for _, res := range sink.results {
		require.NotNil(t, res.Pairs[0].Scope)
		assert.Equal(t, yomikae.ScopeResolved, res.Pairs[0].Scope.Status, res.Location.String())
		assert.Empty(t, res.Flags)
	}
}

func TestRunnerDeduplicatesFailures(t *testing.T) {
	dir, laws := writeLaw(t)
	laws = append(laws, laws[0])

	sink := &collectSink{}
	report, err := NewRunner(RunnerConfig{WorkDir: dir}).Run(context.Background(), laws, sink)
	require.NoError(t, err)
	assert.Len(t, sink.failures, 1)
	assert.Equal(t, 1, report.DuplicateFails)
	assert.Len(t, sink.results, 4)
}

func TestRunnerCancelled(t *testing.T) {
	dir, laws := writeLaw(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(RunnerConfig{WorkDir: dir}).Run(ctx, laws, &collectSink{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestArrayWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewArrayWriter(&buf, "run-1", "results")
	require.NoError(t, err)
	require.NoError(t, w.Write(map[string]int{"a": 1}))
	require.NoError(t, w.Write(map[string]int{"b": 2}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.Error(t, w.Write(1))
	assert.Equal(t, 2, w.Count())

	var envelope struct {
		RunID string           `json:"run_id"`
		Kind  string           `json:"kind"`
		Items []map[string]int `json:"items"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.Equal(t, "run-1", envelope.RunID)
	assert.Equal(t, "results", envelope.Kind)
	assert.Len(t, envelope.Items, 2)
	assert.True(t, strings.HasSuffix(buf.String(), "\n]}\n"))

	buf.Reset()
	w, err = NewArrayWriter(&buf, "run-2", "failures")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.Empty(t, envelope.Items)
}

func TestJSONSink(t *testing.T) {
	dir, laws := writeLaw(t)
	out := t.TempDir()
	sink, err := OpenJSONSink(filepath.Join(out, "output.json"), filepath.Join(out, "err.json"), "run")
	require.NoError(t, err)

	_, err = NewRunner(RunnerConfig{WorkDir: dir}).Run(context.Background(), laws, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	var results struct {
		Items []yomikae.ClauseResult `json:"items"`
	}
	data, err := os.ReadFile(filepath.Join(out, "output.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &results))
	assert.Len(t, results.Items, 2)

	var failures struct {
		Items []yomikae.ClauseFailure `json:"items"`
	}
	data, err = os.ReadFile(filepath.Join(out, "err.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &failures))
	require.Len(t, failures.Items, 1)
	assert.Equal(t, yomikae.ReasonUnbalancedList, failures.Items[0].Reason)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	for _, name := range []string{"b.xml", "a.xml", "sub/c.xml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("<Law/>"), 0644))
	}

	entries, err := Discover(dir, "", "**/*.xml")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.xml", entries[0].File)
	assert.Equal(t, "sub/c.xml", entries[2].File)
	assert.Equal(t, "c", entries[2].LawID())

	_, err = Discover(dir, "", "[")
	require.Error(t, err)

	list := filepath.Join(dir, "index.json")
	require.NoError(t, index.SaveLawList(list, []index.LawEntry{{File: "a.xml"}}))
	entries, err = Discover(dir, list, "")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestXMLWatcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "129AC0000000089"), 0755))
	w := NewXMLWatcher(dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan []string, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, files []string) error {
			changed <- files
			return nil
		})
	}()

	// Give the watcher time to register the directories.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "law.xml"), []byte("<Law/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "129AC0000000089", "129AC0000000089.xml"), []byte("<Law/>"), 0644))

	newDir := filepath.Join(dir, "322AC0000000049")
	require.NoError(t, os.MkdirAll(newDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "322AC0000000049.xml"), []byte("<Law/>"), 0644))

	want := map[string]bool{
		"law.xml":                             true,
		"129AC0000000089/129AC0000000089.xml": true,
		"322AC0000000049/322AC0000000049.xml": true,
	}
	seen := make(map[string]bool)
	deadline := time.After(3 * time.Second)
	for len(seen) < len(want) {
		select {
		case files := <-changed:
			for _, f := range files {
				assert.True(t, want[f], "unexpected file %s", f)
				seen[f] = true
			}
		case <-deadline:
			t.Fatalf("reported %v, want %v", seen, want)
		}
	}

	cancel()
	require.NoError(t, <-done)
}

package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const arxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models are based on
      complex recurrent networks.</summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <published>2018-10-11T00:50:01Z</published>
    <title>BERT</title>
    <summary>Deep bidirectional transformers.</summary>
    <author><name>Jacob Devlin</name></author>
  </entry>
  <entry>
    <title>Third</title>
  </entry>
</feed>`

func newTestArxiv(t *testing.T, srv *httptest.Server) *arxivTool {
	t.Helper()
	cfg := testConfig()
	cfg.HTTPClient = srv.Client()
	tool := newArxivTool(cfg)
	tool.baseURL = srv.URL
	return tool
}

func TestArxiv_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("search_query") != "all:transformers" || q.Get("max_results") != "2" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, arxivFeed)
	}))
	defer srv.Close()

	out, err := newTestArxiv(t, srv).Invoke(context.Background(), "transformers")
	if err != nil {
		t.Fatal(err)
	}
	docs := strings.Split(out, "\n\n")
	if len(docs) != 2 {
		t.Fatalf("expected top 2 documents, got %d: %q", len(docs), out)
	}
	want := "Published: 2017-06-12\nTitle: Attention Is All You Need\nAuthors: Ashish Vaswani, Noam Shazeer\nSummary: The dominant sequence transduction models are based on complex recurrent networks."
	if docs[0] != want {
		t.Errorf("doc = %q", docs[0])
	}
}

func TestArxiv_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	}))
	defer srv.Close()

	out, err := newTestArxiv(t, srv).Invoke(context.Background(), "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if out != "No good Arxiv Result was found" {
		t.Errorf("out = %q", out)
	}
}

func TestArxiv_BadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<feed><entry>")
	}))
	defer srv.Close()

	if _, err := newTestArxiv(t, srv).Invoke(context.Background(), "x"); err == nil {
		t.Fatal("expected parse error")
	}
}

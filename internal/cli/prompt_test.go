package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/sync"
)

func promptAdditions() ([]sync.ReadingListAddition, []sync.FeedAddition) {
	g := model.NewGuide("Tech")
	lists := []sync.ReadingListAddition{{Guide: g, List: model.NewReadingList("http://lists/go", "")}}
	feeds := []sync.FeedAddition{
		{Guide: g, Feed: model.NewDirectFeed("http://a/feed", "Alpha")},
		{Guide: g, Feed: model.NewSearchFeed("Go", "golang")},
		{Guide: g, Feed: model.NewQueryFeed("Mine", model.QueryTagged, "go")},
	}
	return lists, feeds
}

func TestPromptConfirmer(t *testing.T) {
	tests := map[string]struct {
		input     string
		decision  sync.Decision
		wantLists int
		wantFeeds int
	}{
		"yes":                {input: "y\n", decision: sync.Accepted, wantLists: 1, wantFeeds: 3},
		"yes spelled out":    {input: "YES\n", decision: sync.Accepted, wantLists: 1, wantFeeds: 3},
		"no":                 {input: "n\n", decision: sync.Cancelled},
		"empty answer":       {input: "\n", decision: sync.Cancelled},
		"end of input":       {input: "", decision: sync.Cancelled},
		"retry after junk":   {input: "maybe\ny\n", decision: sync.Accepted, wantLists: 1, wantFeeds: 3},
		"select range":       {input: "s\n1 3-4\n", decision: sync.Accepted, wantLists: 1, wantFeeds: 2},
		"select with commas": {input: "s\n2,3\n", decision: sync.Accepted, wantFeeds: 2},
		"select then retry":  {input: "s\n9\n2\n", decision: sync.Accepted, wantFeeds: 1},
		"select nothing":     {input: "s\n\n", decision: sync.Cancelled},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			lists, feeds := promptAdditions()
			var out bytes.Buffer
			p := NewPromptConfirmer(strings.NewReader(tt.input), &out)

			conf, err := p.Confirm(context.Background(), lists, feeds)
			require.NoError(t, err)
			assert.Equal(t, tt.decision, conf.Decision)
			assert.Len(t, conf.ReadingLists, tt.wantLists)
			assert.Len(t, conf.Feeds, tt.wantFeeds)
			assert.Contains(t, out.String(), "Add 4 item(s)?")
		})
	}
}

func TestPromptConfirmerListsCandidates(t *testing.T) {
	lists, feeds := promptAdditions()
	var out bytes.Buffer
	_, err := NewPromptConfirmer(strings.NewReader("n\n"), &out).Confirm(context.Background(), lists, feeds)
	require.NoError(t, err)

	for _, want := range []string{
		"Tech / list http://lists/go",
		"Tech / Alpha (http://a/feed)",
		`Tech / Go (search "golang")`,
		"Tech / Mine (query tagged=go)",
	} {
		assert.Contains(t, out.String(), want)
	}
}

func TestPromptConfirmerCancelledContext(t *testing.T) {
	lists, feeds := promptAdditions()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conf, err := NewPromptConfirmer(strings.NewReader("y\n"), &bytes.Buffer{}).Confirm(ctx, lists, feeds)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, sync.Cancelled, conf.Decision)
}

func TestParseSelection(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    []int
		wantErr bool
	}{
		"single":       {input: "2", want: []int{2}},
		"range":        {input: "1-3", want: []int{1, 2, 3}},
		"mixed":        {input: "1, 4", want: []int{1, 4}},
		"out of range": {input: "5", wantErr: true},
		"zero":         {input: "0", wantErr: true},
		"reversed":     {input: "3-1", wantErr: true},
		"not a number": {input: "x", wantErr: true},
		"bad range":    {input: "1-x", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseSelection(tt.input, 4)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, len(tt.want))
			for _, i := range tt.want {
				assert.True(t, got[i], "item %d", i)
			}
		})
	}
}

func TestChooseConfirmer(t *testing.T) {
	assert.IsType(t, sync.AcceptAll{}, chooseConfirmer(true, true))
	assert.IsType(t, sync.AcceptAll{}, chooseConfirmer(false, false))
}

func TestAsk(t *testing.T) {
	tests := map[string]bool{
		"y\n":    true,
		"Yes\n":  true,
		"n\n":    false,
		"":       false,
		"what\n": false,
	}
	for input, want := range tests {
		p := NewPromptConfirmer(strings.NewReader(input), &bytes.Buffer{})
		assert.Equal(t, want, p.ask("Sure?"), "input %q", input)
	}
}

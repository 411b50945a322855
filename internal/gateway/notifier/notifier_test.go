package notifier

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendText(text string) error {
	return m.Called(text).Error(0)
}

func TestDiscord_SendsContent(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscord(srv.URL).SendText("hello"))
	assert.Equal(t, "hello", got.Content)
	assert.Empty(t, got.Embeds)
}

func TestDiscord_LongTextUsesEmbed(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	d.nowFn = func() time.Time { return time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC) }
	text := strings.Repeat("x", discordMaxContent+1)
	require.NoError(t, d.SendText(text))
	assert.Empty(t, got.Content)
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, text, got.Embeds[0].Description)
	assert.Equal(t, "2024-01-05T00:00:00Z", got.Embeds[0].Timestamp)

	require.NoError(t, d.SendText(strings.Repeat("y", 5000)))
	require.Len(t, got.Embeds, 1)
	assert.Len(t, got.Embeds[0].Description, discordMaxEmbed)
}

func TestDiscord_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad"))
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL).SendText("hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Error(t, NewDiscord("").SendText("hello"))
}

func TestTelegram_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.BaseURL = srv.URL
	tg.Backoff = func(int) time.Duration { return 0 }
	require.NoError(t, tg.SendText("report"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegram_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.BaseURL = srv.URL
	err := tg.SendText("report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, int32(1), calls.Load())
}

func TestTelegram_HonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"parameters":{"retry_after":7}}`))
		}
	}))
	defer srv.Close()

	var slept []time.Duration
	tg := NewTelegram("TOKEN", "42")
	tg.BaseURL = srv.URL
	tg.sleep = func(d time.Duration) { slept = append(slept, d) }
	require.NoError(t, tg.SendText("report"))
	assert.Equal(t, []time.Duration{7 * time.Second}, slept)
}

func TestTelegram_IncompleteConfig(t *testing.T) {
	assert.Error(t, NewTelegram("", "1").SendText("x"))
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := new(mockNotifier)
	ok.On("SendText", "daily").Return(nil).Once()
	bad := new(mockNotifier)
	boom := errors.New("boom")
	bad.On("SendText", "daily").Return(boom).Once()

	err := Multi{ok, nil, bad, Log{}}.SendText("daily")
	assert.ErrorIs(t, err, boom)
	ok.AssertExpectations(t)
	bad.AssertExpectations(t)
}

func TestMessage_TableKeepsAlignment(t *testing.T) {
	msg := Message{
		Title: "FX Daily",
		Sections: []Section{
			{Title: "Rules", Table: true, Lines: []string{"SYMBOL   ACTION", "USD_JPY  long  "}},
			{Title: "Notes", Lines: []string{" flipped ", ""}},
			{Title: "Empty", Lines: []string{"  "}},
		},
		Footer: "done",
	}
	out := msg.Render(0)
	assert.Equal(t, "FX Daily\n\n```\nRules\nSYMBOL   ACTION\nUSD_JPY  long\n\nNotes\n- flipped\n```\n\ndone", out)
}

func TestMessage_EscapesFenceAndTruncates(t *testing.T) {
	msg := Message{Sections: []Section{{Lines: []string{"a ``` b", strings.Repeat("価", 100)}}}}
	out := msg.Render(0)
	assert.Contains(t, out, "- a ''' b")
	assert.Equal(t, 1, strings.Count(out, "```\n"))

	short := msg.Render(40)
	assert.LessOrEqual(t, len(short), 40)
	assert.True(t, strings.HasSuffix(short, "..."))
	assert.True(t, utf8.ValidString(short))
}

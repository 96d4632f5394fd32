package notify_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"productdash/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFeed_KeepsMostRecent(t *testing.T) {
	feed := notify.NewFeed(3)
	for i := 0; i < 5; i++ {
		feed.Notify(notify.New(notify.LevelSuccess, fmt.Sprintf("msg-%d", i)))
	}

	recent := feed.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "msg-2", recent[0].Message)
	assert.Equal(t, "msg-4", recent[2].Message)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := notify.NewFeed(10), notify.NewFeed(10)
	notify.Multi{a, b}.Notify(notify.New(notify.LevelError, "boom"))

	assert.Len(t, a.Recent(), 1)
	assert.Len(t, b.Recent(), 1)
	assert.NotEmpty(t, a.Recent()[0].ID)
}

func TestLogNotifier_LevelMapping(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := notify.NewLogNotifier(zap.New(core))

	n.Notify(notify.New(notify.LevelSuccess, "saved"))
	n.Notify(notify.New(notify.LevelError, "failed"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "failed", entries[1].ContextMap()["message"])
}

func TestWriterNotifier(t *testing.T) {
	var out strings.Builder
	n := notify.NewWriterNotifier(&out)

	n.Notify(notify.New(notify.LevelSuccess, "Product added successfully"))
	n.Notify(notify.New(notify.LevelError, "Failed to load products"))

	assert.Equal(t, "[success] Product added successfully\n[error] Failed to load products\n", out.String())
}

func TestNotificationJSON(t *testing.T) {
	body, err := json.Marshal(notify.New(notify.LevelSuccess, "Product added successfully"))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Contains(t, fields, "createdAt")
	assert.Equal(t, "success", fields["level"])
	assert.Equal(t, "Product added successfully", fields["message"])
}

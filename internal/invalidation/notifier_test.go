package invalidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var n Notifier = NewLogNotifier(zap.New(core))

	n.Notify("events")

	entries := logs.FilterMessage("collection changed").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "events", entries[0].ContextMap()["collection"])
	}
}

func TestMulti(t *testing.T) {
	var got []string
	record := func(prefix string) Notifier {
		return Func(func(c string) { got = append(got, prefix+c) })
	}

	Multi(record("a:"), record("b:")).Notify("promo")

	assert.Equal(t, []string{"a:promo", "b:promo"}, got)
}

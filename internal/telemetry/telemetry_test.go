package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestBusinessEventSpans(t *testing.T) {
	recorder := withRecorder(t)
	be := NewBusinessEvents()

	_, span := be.TraceSendMessage(context.Background(), "a", "b", false)
	RecordDelivery(span, "new_message", "b")
	RecordSuccess(span, 1)
	span.End()

	_, span = be.TraceNotify(context.Background(), "like", "b")
	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "messages.send", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "realtime.emit", ended[0].Events()[0].Name)

	assert.Equal(t, "notifications.notify", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
}

func TestGORMTracingPlugin(t *testing.T) {
	recorder := withRecorder(t)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Use(GORMTracingPlugin()))

	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&widget{}))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "a"}).Error)
	var got widget
	require.NoError(t, db.WithContext(ctx).First(&got).Error)

	names := map[string]bool{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = true
	}
	assert.True(t, names["db.insert"])
	assert.True(t, names["db.select"])
}

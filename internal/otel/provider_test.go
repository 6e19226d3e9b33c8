package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("wavedirector"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "wavedirector"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log writer or endpoint")
}

func TestNew_EnabledWithWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "wavedirector",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_ResourceDescribesRun(t *testing.T) {
	p, err := New(Config{
		Enabled:      true,
		Version:      "1.4.0",
		ProfileID:    "player-7",
		Mode:         "endless",
		BatchTimeout: time.Second,
		LogWriter:    &bytes.Buffer{},
	})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	attrs := map[attribute.Key]string{}
	for _, kv := range p.Resource().Attributes() {
		attrs[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "wavedirector", attrs[semconv.ServiceNameKey])
	assert.Equal(t, "1.4.0", attrs[semconv.ServiceVersionKey])
	assert.Equal(t, "player-7", attrs[AttrProfile])
	assert.Equal(t, "endless", attrs[AttrMode])
}

func TestNew_ResourceOmitsUnsetFields(t *testing.T) {
	p, err := New(Config{Enabled: true, ServiceName: "director-qa", LogWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.True(t, p.Resource().Set().HasValue(semconv.ServiceNameKey))
	assert.False(t, p.Resource().Set().HasValue(AttrMode))
	assert.False(t, p.Resource().Set().HasValue(AttrProfile))
	assert.NotEqual(t, noop.Meter{}, p.Meter("wavedirector"))
}

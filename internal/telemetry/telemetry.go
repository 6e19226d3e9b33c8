// Package telemetry writes wave and economy events to InfluxDB. When the
// server cannot be reached the points go to a gzip line-protocol backup file
// instead.
package telemetry

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/internal/session"
	"github.com/cluckworks/wavedirector/pkg/core"
)

const (
	BucketWaves   = "wave_events"
	BucketEconomy = "economy"
)

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{BucketWaves, BucketEconomy}

// ErrDisabled is returned by Connect when telemetry is switched off.
var ErrDisabled = errors.New("influx telemetry disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new telemetry manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB, falling back to the backup
// file when the server does not answer.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("InfluxDB unreachable, writing telemetry to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	org, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// 30 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// Follow writes a point for every wave and economy event. Writes happen on
// a buffered subscriber so a slow server never stalls the game loop.
func (m *Manager) Follow(d *dispatcher.Dispatcher, sess *session.Context) {
	handler := func(e dispatcher.Event) error {
		bucket, point, ok := PointFor(e, sess)
		if !ok {
			return nil
		}
		return m.WritePoint(bucket, point)
	}

	for _, typ := range []string{
		core.EventWaveStarted,
		core.EventWaveCompleted,
		core.EventUnitKilled,
		core.EventCoinsChanged,
	} {
		d.Subscribe(typ, handler, dispatcher.Buffered(256), dispatcher.Named("telemetry."+typ))
	}
}

// PointFor converts an event into a point. It reports false for event
// types that are not recorded.
func PointFor(e dispatcher.Event, sess *session.Context) (string, *influxdb2_write.Point, bool) {
	var (
		bucket string
		point  *influxdb2_write.Point
	)

	switch p := e.Payload.(type) {
	case core.WaveStarted:
		bucket = BucketWaves
		point = influxdb2_write.NewPointWithMeasurement("wave_started").
			AddField("index", p.Index).
			AddField("units", p.Units).
			AddTag("wave", p.Name)
	case core.WaveCompleted:
		bucket = BucketWaves
		point = influxdb2_write.NewPointWithMeasurement("wave_completed").
			AddField("index", p.Index).
			AddField("reward", p.Reward).
			AddTag("wave", p.Name)
	case core.UnitKilled:
		bucket = BucketWaves
		point = influxdb2_write.NewPointWithMeasurement("unit_killed").
			AddField("wave", p.WaveIndex).
			AddField("alive", p.Alive).
			AddField("reward", p.Reward).
			AddTag("unitType", string(p.UnitType))
	case core.CoinsChanged:
		bucket = BucketEconomy
		point = influxdb2_write.NewPointWithMeasurement("session_coins").
			AddField("total", p.Total)
	default:
		return "", nil, false
	}

	if sess != nil {
		point.AddTag("session", sess.ID()).
			AddTag("mode", string(sess.Mode()))
	}
	point.SetTime(e.Timestamp)
	return bucket, point, true
}

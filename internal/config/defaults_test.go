package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultOrgHeader, cfg.Server.OrgHeader)
	assert.Equal(t, DefaultDBMaxConns/2, cfg.Database.MaxIdleConns)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultCommitLockTTL, cfg.Engine.CommitLockTTL)
	assert.Equal(t, 0, cfg.Engine.ConfidenceThreshold, "threshold is defaulted by the loader")
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 9000},
		Engine: EngineConfig{MatrixSize: 4, CacheTTL: time.Second, ResidualFormula: "dime-strongest-v1"},
	}
	ApplyDefaults(cfg)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Engine.MatrixSize)
	assert.Equal(t, time.Second, cfg.Engine.CacheTTL)
	assert.Equal(t, "dime-strongest-v1", cfg.Engine.ResidualFormula)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending

package duex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValidAndNonTLS(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.isTLS())
	assert.Equal(t, 10*time.Second, cfg.keepAliveTimeout())
}

func TestConfigValidateFixesInvalidKeepAlive(t *testing.T) {
	cfg := &Config{KeepAliveMillis: -5}
	var logged string
	cfg.validate(func(f string, v ...any) { logged = f })
	assert.Equal(t, DefaultConfig().KeepAliveMillis, cfg.KeepAliveMillis)
	assert.NotEmpty(t, logged)
}

func TestConfigIsTLSWhenCertAndKeyPresent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Cert = "cert.pem"
	cfg.Server.Key = "key.pem"
	assert.True(t, cfg.isTLS())
}

func TestConfigIsTLSWhenPFXPresent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.PFX = "bundle.pfx"
	assert.True(t, cfg.isTLS())
}

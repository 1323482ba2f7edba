/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

// writeSelfSigned writes a self-signed certificate and key into dir.
func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "serviceradar-live-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "client.pem")
	keyFile = filepath.Join(dir, "client-key.pem")

	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))

	return certFile, keyFile
}

func TestClientTLSConfig_Disabled(t *testing.T) {
	cfg, err := ClientTLSConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = ClientTLSConfig(&models.SecurityConfig{Mode: models.SecurityModeNone})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestClientTLSConfig_MTLS(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t, t.TempDir())

	cfg, err := ClientTLSConfig(&models.SecurityConfig{
		Mode:       models.SecurityModeMTLS,
		ServerName: "live.serviceradar",
		TLS:        models.TLSConfig{CertFile: certFile, KeyFile: keyFile, CAFile: certFile},
	})
	require.NoError(t, err)

	assert.Equal(t, "live.serviceradar", cfg.ServerName)
	assert.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.RootCAs)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
}

func TestClientTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a cert"), 0o600))

	_, err := ClientTLSConfig(&models.SecurityConfig{Mode: "spiffe"})
	require.ErrorIs(t, err, ErrUnknownSecurityMode)

	_, err = ClientTLSConfig(&models.SecurityConfig{Mode: models.SecurityModeMTLS})
	require.ErrorIs(t, err, ErrClientCertRequired)

	_, err = ClientTLSConfig(&models.SecurityConfig{Mode: models.SecurityModeTLS, TLS: models.TLSConfig{CAFile: garbage}})
	require.ErrorIs(t, err, ErrCAParsingFailed)

	_, err = ClientTLSConfig(&models.SecurityConfig{Mode: models.SecurityModeTLS, TLS: models.TLSConfig{CAFile: filepath.Join(dir, "missing.pem")}})
	require.Error(t, err)
}

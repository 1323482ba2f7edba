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

// Package security builds client TLS configurations from models.SecurityConfig.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

var (
	// ErrCAParsingFailed is returned when the CA certificate cannot be parsed.
	ErrCAParsingFailed = errors.New("failed to parse CA certificate")
	// ErrClientCertRequired is returned in mtls mode when no key pair is configured.
	ErrClientCertRequired = errors.New("mtls mode requires cert_file and key_file")
	// ErrUnknownSecurityMode is returned for modes other than none, tls and mtls.
	ErrUnknownSecurityMode = errors.New("unknown security mode")
)

// ClientTLSConfig returns the tls.Config for sec, or nil when security is disabled.
// Paths are expected to be absolute or already resolved against cert_dir.
func ClientTLSConfig(sec *models.SecurityConfig) (*tls.Config, error) {
	if !sec.Enabled() {
		return nil, nil
	}

	if sec.Mode != models.SecurityModeTLS && sec.Mode != models.SecurityModeMTLS {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSecurityMode, sec.Mode)
	}

	cfg := &tls.Config{
		ServerName:         sec.ServerName,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: sec.InsecureSkipVerify, //nolint:gosec // opt-in for lab deployments
	}

	if sec.TLS.CAFile != "" {
		caCert, err := os.ReadFile(sec.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, ErrCAParsingFailed
		}

		cfg.RootCAs = caPool
	}

	if sec.Mode == models.SecurityModeMTLS {
		if sec.TLS.CertFile == "" || sec.TLS.KeyFile == "" {
			return nil, ErrClientCertRequired
		}

		cert, err := tls.LoadX509KeyPair(sec.TLS.CertFile, sec.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		cfg.Certificates = []tls.Certificate{cert}
		cfg.MinVersion = tls.VersionTLS13
	}

	return cfg, nil
}

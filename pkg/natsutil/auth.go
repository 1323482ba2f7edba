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

package natsutil

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/jwt/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
)

var (
	// ErrCredentialsExpired is returned when the user JWT in a creds file is past its expiry.
	ErrCredentialsExpired = errors.New("NATS user credentials have expired")
	errNotUserSeed        = errors.New("nkey seed is not a user key")
)

// authOptions returns the nats options for whichever credential the config names.
func authOptions(cfg *models.NATSConfig, now time.Time, log logger.Logger) ([]nats.Option, error) {
	switch {
	case cfg.CredsFile != "":
		if err := checkUserCredentials(cfg.CredsFile, now, log); err != nil {
			return nil, err
		}

		return []nats.Option{nats.UserCredentials(cfg.CredsFile)}, nil
	case cfg.NKeySeedFile != "":
		opt, err := nkeyOption(cfg.NKeySeedFile)
		if err != nil {
			return nil, err
		}

		return []nats.Option{opt}, nil
	default:
		return nil, nil
	}
}

// checkUserCredentials rejects an unreadable or expired creds file.
func checkUserCredentials(path string, now time.Time, log logger.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read NATS creds file: %w", err)
	}

	token, err := jwt.ParseDecoratedJWT(data)
	if err != nil {
		return fmt.Errorf("failed to parse NATS creds file %s: %w", path, err)
	}

	claims, err := jwt.DecodeUserClaims(token)
	if err != nil {
		return fmt.Errorf("failed to decode user JWT in %s: %w", path, err)
	}

	if claims.Expires == 0 {
		return nil
	}

	expires := time.Unix(claims.Expires, 0)
	if !now.Before(expires) {
		return fmt.Errorf("%w: %s expired at %s", ErrCredentialsExpired, claims.Subject, expires.UTC().Format(time.RFC3339))
	}

	log.Debug().Str("user", claims.Subject).Time("expires", expires).Msg("Loaded NATS user credentials")

	return nil
}

func nkeyOption(path string) (nats.Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read NATS nkey seed: %w", err)
	}

	kp, err := nkeys.ParseDecoratedNKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse NATS nkey seed %s: %w", path, err)
	}

	pub, err := kp.PublicKey()
	if err != nil {
		return nil, err
	}

	if !nkeys.IsValidPublicUserKey(pub) {
		return nil, errNotUserSeed
	}

	return nats.Nkey(pub, kp.Sign), nil
}

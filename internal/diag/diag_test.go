// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package diag_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/pincer/internal/diag"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var console bytes.Buffer
	logger, closer, err := diag.NewLogger(diag.Options{Level: "warn", Console: &console})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, closer.Close())
	})

	logger.Info("dropped")
	logger.WithField("cell", 3).Warn("skipped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(console.Bytes(), &entry))
	assert.Equal(t, "skipped", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, float64(3), entry["cell"])
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pincer.log")

	var console bytes.Buffer
	logger, closer, err := diag.NewLogger(diag.Options{File: path, MaxSizeMB: 1, Console: &console})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Equal(t, console.String(), string(data))
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, _, err := diag.NewLogger(diag.Options{Level: "loud"})
	assert.Error(t, err)
}

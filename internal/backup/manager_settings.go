// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package backup

import (
	"context"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/models"
)

// GetSettings returns the global settings. RemoteConfig is read back from
// the rclone config file.
func (m *Manager) GetSettings(ctx context.Context) (*models.Settings, error) {
	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := m.remoteConfig.Read()
	if err != nil {
		return nil, err
	}
	settings.RemoteConfig = rc
	return settings, nil
}

// SaveSettings replaces the global settings. RemoteConfig is written to the
// rclone config file; everything else goes to the store. The scheduler's
// cached copy is refreshed.
func (m *Manager) SaveSettings(ctx context.Context, in *models.Settings) (*models.Settings, error) {
	settings := in.Clone()
	settings.UpdatedAt = m.now().UTC()

	if m.remoteConfig.Path != "" {
		if err := m.remoteConfig.Write(settings.RemoteConfig); err != nil {
			return nil, err
		}
	}
	if err := m.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	m.scheduler.RefreshSettings(settings)

	logging.Ctx(ctx).Info().Int("ignore_patterns", len(settings.IgnorePatterns)).
		Bool("remote_config", settings.RemoteConfig != "").Msg("Settings saved")
	return m.GetSettings(ctx)
}

package services

import (
	"sales_sync/internal/models"
	"sales_sync/internal/repository"
)

// SettingsService exposes the local-only settings. There is no real
// authentication; a single current-user name is stored on the device.
type SettingsService struct {
	settings repository.SettingsRepository
}

func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) CurrentUser() (string, error) {
	return s.settings.Get(models.SettingCurrentUser)
}

func (s *SettingsService) SetCurrentUser(name string) error {
	return s.settings.Set(models.SettingCurrentUser, name)
}

// Package config provides configuration management for myzuka-downloader.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from a YAML file and MYZUKA_* environment variables
//   - Validation of the loaded values
//   - Conversion to the option structs of the http, fetch and model packages
//
// # Loading
//
//	settings, err := config.Load("myzuka.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// A missing file is not an error; defaults and the environment are used.
//
// # Saving Settings
//
//	settings.DownloadsPath = "/music/myzuka"
//	err := settings.Save("myzuka.yaml")
package config

package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// URLList is the YAML file accepted by --urllist:
//
//	urls:
//	  - http://myzuka.club/Album/630746/The-6-Cello-Suites-Cd1-1994
//	  - http://myzuka.club/Artist/7110/Johann-Sebastian-Bach
type URLList struct {
	URLs []string `yaml:"urls" validate:"required,min=1,dive,required,url"`
}

var validate = validator.New()

// readURLList loads and validates a URL list file.
func readURLList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}

	var list URLList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse url list %s: %w", path, err)
	}
	if err := validate.Struct(list); err != nil {
		return nil, fmt.Errorf("invalid url list %s: %w", path, err)
	}
	return list.URLs, nil
}

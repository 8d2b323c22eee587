// Package assets holds the embedded invoice layout template and stylesheet.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed styles/*
var styles embed.FS

//go:embed templates/*
var templates embed.FS

// Sentinel errors for asset loading.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
)

// LoadStyle loads a CSS stylesheet from the embedded assets by name.
// The name should not include the .css extension.
func LoadStyle(name string) (string, error) {
	if err := validateAssetName(name); err != nil {
		return "", err
	}

	content, err := styles.ReadFile("styles/" + name + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}

	return string(content), nil
}

// LoadTemplate loads an HTML template from the embedded assets by name.
// The name should not include the .html extension.
func LoadTemplate(name string) (string, error) {
	if err := validateAssetName(name); err != nil {
		return "", err
	}

	content, err := templates.ReadFile("templates/" + name + ".html")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	return string(content), nil
}

// validateAssetName rejects names that could escape the embedded trees.
func validateAssetName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

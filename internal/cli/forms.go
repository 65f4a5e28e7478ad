package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/render"
)

// issueForm collects the fields of a new issue.
type issueForm struct {
	title       string
	description string
	priority    string
}

func priorityOptions() []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(model.Priorities))
	for _, p := range model.Priorities {
		options = append(options, huh.NewOption(render.PriorityText(p), string(p)))
	}
	return options
}

func (f *issueForm) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("A short summary of the issue").
				Placeholder("Login button does nothing on Safari").
				Value(&f.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Description("Optional details, steps to reproduce, links").
				Value(&f.description),
			huh.NewSelect[string]().
				Title("Priority").
				Options(priorityOptions()...).
				Value(&f.priority),
		),
	)
}

// loginForm collects connection settings.
type loginForm struct {
	apiKey    string
	workspace string
	projectID string
	baseURL   string
}

func (f *loginForm) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Key").
				Description("Personal API token from Plane workspace settings").
				EchoMode(huh.EchoModePassword).
				Value(&f.apiKey).
				Validate(validateRequired("API key")),
			huh.NewInput().
				Title("Workspace Slug").
				Description("The workspace part of your Plane URLs").
				Placeholder("my-team").
				Value(&f.workspace).
				Validate(validateRequired("Workspace slug")),
			huh.NewInput().
				Title("Project ID").
				Description("UUID of the project issues are created in").
				Value(&f.projectID).
				Validate(validateRequired("Project ID")),
			huh.NewInput().
				Title("API Base URL").
				Placeholder("https://api.plane.so/api/v1").
				Value(&f.baseURL).
				Validate(validateURL),
		),
	)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://api.plane.so/api/v1)")
	}
	return nil
}

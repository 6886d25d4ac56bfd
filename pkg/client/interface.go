package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/multishot-scanner/pkg/llamacpp"
	"github.com/menta2k/multishot-scanner/pkg/ollama"
)

// VisionClient sends a prompt plus one image to a vision model
type VisionClient interface {
	Name() string
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	Ping(ctx context.Context) error
}

// New creates the vision backend named by backendType ("ollama" or "llamacpp")
func New(backendType, url string) (VisionClient, error) {
	switch strings.ToLower(backendType) {
	case "ollama":
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "llamacpp", "llama.cpp", "":
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", backendType)
	}
}

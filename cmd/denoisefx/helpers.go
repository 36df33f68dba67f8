package main

import (
	"fmt"
	"strconv"
	"strings"

	"denoisefx/internal/provider"
)

// parseProvider accepts a provider name or its integer code.
func parseProvider(value string) (provider.ID, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", "auto", "automatic":
		return provider.Automatic, nil
	case "cuda":
		return provider.CUDA, nil
	case "nlmeans", "nlm":
		return provider.NLMeans, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return provider.Invalid, fmt.Errorf("unknown provider %q (want auto, cuda, nlmeans or a number)", value)
	}
	return provider.ID(n), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

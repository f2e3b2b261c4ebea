package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/service/trending"
)

func TestResolveCommandPrintsHashtags(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"resolve", "Fitness"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Key      string   `json:"key"`
		Source   string   `json:"source"`
		Hashtags []string `json:"hashtags"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out.String(), err)
	}
	if got.Key != "fitness" || got.Source != "exact" {
		t.Fatalf("expected exact fitness match, got %+v", got)
	}
	if len(got.Hashtags) == 0 {
		t.Fatalf("expected hashtags, got none")
	}
}

func TestResolveCommandRequiresNiche(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resolve"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error without niche argument")
	}
}

func TestFetchCommandRejectsUnknownPlatform(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"fetch", "cooking", "--platform", "myspace"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid platform") {
		t.Fatalf("expected invalid platform error, got %v", err)
	}
}

func TestTrendingRequestWritesProgress(t *testing.T) {
	var buf bytes.Buffer
	req := trendingRequest("cooking", domain.PlatformInstagram, &buf)
	req.Progress(trending.Event{Stage: trending.StageFetching, Message: "Fetching videos"})

	if req.Platform != domain.PlatformInstagram || req.Niche != "cooking" {
		t.Fatalf("unexpected request %+v", req)
	}
	if got := buf.String(); got != "[fetching] Fetching videos\n" {
		t.Fatalf("expected progress line, got %q", got)
	}
}

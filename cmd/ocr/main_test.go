package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/adverant/nexus/ocr-engine/internal/queue"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr/inference/inferencetest"
)

func TestRunPrintsTextAndStatistics(t *testing.T) {
	dir := t.TempDir()
	det, rec := inferencetest.WriteModels(t, dir)
	image := inferencetest.WriteTextImage(t, dir, "scan.png", "Hello OCR\nsecond line")
	backend := &inferencetest.Backend{}

	var stdout, stderr bytes.Buffer
	code := run([]string{"-det", det, "-rec", rec, image}, &stdout, &stderr, ocr.WithBackend(backend.New))
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %q", code, stderr.String())
	}

	timing := regexp.MustCompile(`(?m)^Time taken: \d+\.\d{4} seconds$`)
	if !timing.MatchString(stdout.String()) {
		t.Errorf("no timing line in %q", stdout.String())
	}
	got := timing.ReplaceAllString(stdout.String(), "Time taken: <elapsed>")
	want := "Creating OCR engine...\n" +
		"Processing image: " + image + "\n" +
		"Time taken: <elapsed>\n" +
		"Recognized text:\n" +
		separator + "\n" +
		"Hello OCR\nsecond line\n" +
		separator + "\n" +
		"Statistics:\n" +
		"  Words: 4\n" +
		"  Characters: 21\n"
	if got != want {
		t.Errorf("stdout =\n%s\nwant\n%s", got, want)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q", stderr.String())
	}
	if backend.Closed() != 1 {
		t.Errorf("engine closed %d times, want 1", backend.Closed())
	}
}

func TestRunProcessingError(t *testing.T) {
	dir := t.TempDir()
	det, rec := inferencetest.WriteModels(t, dir)
	missing := filepath.Join(dir, "missing.png")
	backend := &inferencetest.Backend{}

	var stdout, stderr bytes.Buffer
	code := run([]string{"-det", det, "-rec", rec, missing}, &stdout, &stderr, ocr.WithBackend(backend.New))
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "Error: failed to open image "+missing) {
		t.Errorf("stderr = %q", stderr.String())
	}
}

type recordingSubmitter struct {
	job queue.JobData
	err error
}

func (r *recordingSubmitter) Submit(_ context.Context, job queue.JobData) (string, error) {
	r.job = job
	return "job-1", r.err
}

func TestSubmitResolvesRelativePath(t *testing.T) {
	want, err := filepath.Abs(filepath.Join("scans", "a.png"))
	if err != nil {
		t.Fatal(err)
	}

	s := &recordingSubmitter{}
	var stdout, stderr bytes.Buffer
	if code := submit(context.Background(), s, filepath.Join("scans", "a.png"), &stdout, &stderr); code != 0 {
		t.Fatalf("submit() = %d, stderr = %q", code, stderr.String())
	}
	if s.job.ImagePath != want {
		t.Errorf("ImagePath = %q, want %q", s.job.ImagePath, want)
	}
	if stdout.String() != "Submitted job job-1 for "+want+"\n" {
		t.Errorf("stdout = %q", stdout.String())
	}

	failing := &recordingSubmitter{err: errors.New("redis down")}
	stderr.Reset()
	if code := submit(context.Background(), failing, "a.png", &stdout, &stderr); code != 1 {
		t.Fatalf("submit() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "redis down") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "usage: ocr") || !strings.Contains(stderr.String(), "-tags ocr") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunMissingDetectionModel(t *testing.T) {
	dir := t.TempDir()
	det := filepath.Join(dir, "missing-osd.traineddata")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-det", det, "-rec", filepath.Join(dir, "eng.traineddata"), "scan.png"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	want := "Error: failed to load detection model from " + det
	if !strings.HasPrefix(stderr.String(), want) {
		t.Errorf("stderr = %q, want prefix %q", stderr.String(), want)
	}
	if !strings.Contains(stdout.String(), "Creating OCR engine...") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "Processing image") {
		t.Error("image processed without an engine")
	}
}

func TestRunEmptyModelPath(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-det", "", "scan.png"}, &stdout, &stderr); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "OCR_DETECTION_MODEL") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

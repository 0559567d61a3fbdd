// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
)

// Dataset is the single JSONL file an evaluation reads. Datasets built from inline content own
// a temporary file that Close removes.
type Dataset struct {
	Path     string
	RowCount int
	temp     bool
}

// OpenDataset resolves filePath, or materializes content when filePath is empty. filePath is
// tried verbatim first and then relative to dataDir.
func OpenDataset(filePath, content, dataDir string) (*Dataset, error) {
	if filePath != "" {
		return openFile(filePath, dataDir)
	}
	if content != "" {
		return writeTemp(content)
	}
	return nil, exterrors.Validation(
		exterrors.CodeInvalidArguments,
		"Either file_path or content must be provided",
		"",
	)
}

func openFile(filePath, dataDir string) (*Dataset, error) {
	candidates := []string{filePath}
	if dataDir != "" && !filepath.IsAbs(filePath) {
		candidates = append(candidates, filepath.Join(dataDir, filePath))
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		rows, err := countRows(candidate)
		if err != nil {
			return nil, err
		}
		return &Dataset{Path: candidate, RowCount: rows}, nil
	}

	return nil, exterrors.Validation(
		exterrors.CodeFileNotFound,
		fmt.Sprintf("File not found: %s (also checked in %s)", filePath, dataDir),
		"pass an existing JSONL file path or the dataset as inline content",
	)
}

func writeTemp(content string) (*Dataset, error) {
	f, err := os.CreateTemp("", "*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("creating temporary dataset: %w", err)
	}

	_, err = f.WriteString(content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("writing temporary dataset: %w", err)
	}

	rows := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		rows++
	}

	return &Dataset{Path: f.Name(), RowCount: rows, temp: true}, nil
}

// Close removes the temporary file of an inline dataset. It is a no-op for caller files.
func (d *Dataset) Close() error {
	if d == nil || !d.temp {
		return nil
	}
	if err := os.Remove(d.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to remove temporary dataset %s: %v", d.Path, err)
		return fmt.Errorf("removing temporary dataset: %w", err)
	}
	return nil
}

func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	rows := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRowSize)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			rows++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading dataset: %w", err)
	}
	return rows, nil
}

package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteDataset serializes the dataset into users.json and debts.json under the provided directory.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	usersPath := filepath.Join(dir, "users.json")
	if err := writeJSON(usersPath, dataset.Users); err != nil {
		return err
	}

	debtsPath := filepath.Join(dir, "debts.json")
	if err := writeJSON(debtsPath, dataset.Debts); err != nil {
		return err
	}

	return nil
}

// ReadDataset loads a dataset previously written by WriteDataset.
func ReadDataset(dir string) (Dataset, error) {
	var ds Dataset
	if err := readJSON(filepath.Join(dir, "users.json"), &ds.Users); err != nil {
		return Dataset{}, err
	}
	if err := readJSON(filepath.Join(dir, "debts.json"), &ds.Debts); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, dst any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(dst); err != nil {
		return fmt.Errorf("decode json from %s: %w", path, err)
	}
	return nil
}

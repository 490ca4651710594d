package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"catalog_system/internal/catalog"
	"catalog_system/internal/importer"

	"github.com/spf13/cobra"
)

var (
	importDir       string
	importDelimiter string
)

// catalogctl import [files...] --dir DIR --delimiter ,
var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import products from delimited text files, upserting by sku",
	RunE: func(cmd *cobra.Command, args []string) error {
		delimiter, err := parseDelimiter(importDelimiter)
		if err != nil {
			return err
		}
		paths, err := collectFiles(args, importDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no files to import: pass file names or --dir")
		}
		cfg, database, err := bootDB()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		total := importer.New(database, delimiter).ImportFiles(ctx, paths)
		fmt.Printf("Imported %d products, skipped %d rows\n", total.Imported, total.Skipped)

		// Listings cached by the server are stale now
		if rdb := redisClient(ctx, cfg); rdb != nil {
			defer rdb.Close()
			catalog.NewService(database, rdb, cfg.CacheTTL).InvalidateCache(ctx)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "", "import every .csv and .txt file in this directory")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", ",", "field delimiter, a single character or \\t")
}

// parseDelimiter accepts one character, or the escape \t for tab
func parseDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// collectFiles returns the explicit paths followed by the .csv and .txt files of dir, sorted
func collectFiles(paths []string, dir string) ([]string, error) {
	files := append([]string{}, paths...)
	if dir == "" {
		return files, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".txt":
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(found)
	return append(files, found...), nil
}

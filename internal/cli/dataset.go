package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Inspect and fill the training dataset",
	RunE:  runDatasetInfo,
}

var datasetCreateCmd = &cobra.Command{
	Use:   "create <class> [class...]",
	Short: "Create class folders",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDatasetCreate,
}

var datasetUploadCmd = &cobra.Command{
	Use:   "upload <class> <image|dir> [image|dir...]",
	Short: "Upload images into a class",
	Long: `Upload images into a class folder. Directories are read one level deep
and files without an image extension are skipped.

Examples:
  ensemblr dataset upload cats ./photos/cats
  ensemblr dataset upload dogs rex.jpg fido.png`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDatasetUpload,
}

func init() {
	datasetCmd.AddCommand(datasetCreateCmd)
	datasetCmd.AddCommand(datasetUploadCmd)
	rootCmd.AddCommand(datasetCmd)
}

type datasetInfo struct {
	Classes     map[string]int `json:"classes"`
	TotalImages int            `json:"total_images"`
	NumClasses  int            `json:"num_classes"`
}

func runDatasetInfo(cmd *cobra.Command, args []string) error {
	data, status, err := NewClient().Get("/api/dataset")
	if err != nil {
		return fmt.Errorf("failed to get dataset: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var info datasetInfo
	if err := decode(data, &info); err != nil {
		return err
	}

	printHeader("Dataset")
	fmt.Printf("%d images in %d classes\n\n", info.TotalImages, info.NumClasses)
	for _, class := range sortedKeys(info.Classes) {
		fmt.Printf("  %-20s %d\n", class, info.Classes[class])
	}
	return nil
}

func runDatasetCreate(cmd *cobra.Command, args []string) error {
	data, status, err := NewClient().Post("/api/dataset/folders", map[string][]string{"folders": args})
	if err != nil {
		return fmt.Errorf("failed to create folders: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var resp struct {
		Message string   `json:"message"`
		Folders []string `json:"folders"`
	}
	if err := decode(data, &resp); err != nil {
		return err
	}
	goodColor.Printf("✓ %s: %s\n", resp.Message, strings.Join(resp.Folders, ", "))
	return nil
}

func runDatasetUpload(cmd *cobra.Command, args []string) error {
	class := args[0]

	files, err := collectImages(args[1:])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found")
	}

	parts := make([]FilePart, len(files))
	folders := make([]string, len(files))
	for i, f := range files {
		parts[i] = FilePart{Field: "images", Path: f}
		folders[i] = class
	}

	data, status, err := NewClient().PostFiles("/api/dataset/images", parts, map[string][]string{"folder_names": folders})
	if err != nil {
		return fmt.Errorf("failed to upload images: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if jsonOut {
		printRaw(data)
		return nil
	}

	var resp struct {
		Message  string   `json:"message"`
		Warnings []string `json:"warnings"`
	}
	if err := decode(data, &resp); err != nil {
		return err
	}
	goodColor.Printf("✓ %s\n", resp.Message)
	for _, w := range resp.Warnings {
		warnColor.Printf("  ! %s\n", w)
	}
	return nil
}

var uploadExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true,
}

// collectImages expands directories one level deep and keeps files with
// an image extension.
func collectImages(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && uploadExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				out = append(out, filepath.Join(p, e.Name()))
			}
		}
	}
	return out, nil
}

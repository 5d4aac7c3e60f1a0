package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// BDEDataset lazily loads featurized reaction CSV files matching a glob
// pattern. Each CSV file is expected to have a header with a "reaction"
// column, feature columns "feat_0".."feat_{k-1}", and a "bde" column holding
// the raw bond dissociation energy.
//
// Target normalization stats are computed once over all files during
// construction; Example and Batch always return normalized values.
type BDEDataset struct {
	// Pattern used to find CSV files (e.g., "assets/reactions/*.csv")
	Pattern string

	// BatchSize used by Yield when serving gomlx-style batches
	BatchSize int

	// List of CSV file paths matching the pattern
	csvPaths []string

	// Column indices discovered from the first file's header
	reactionCol int
	valueCol    int
	featCols    []int // index of feat_i is featCols[i]

	// Cache for counting rows in each file (file index -> row count)
	rowCounts map[int]int

	// Cumulative counts for fast global index mapping
	cumCounts []int

	// Total number of examples across all files
	totalExamples int

	// Target normalization scalars, fixed after construction
	stats Stats

	// Cursor for Yield
	yieldPos int
}

// NewBDEDataset creates a dataset over all CSV files matching the given
// pattern and computes the target normalization stats in a single pass over
// the label column.
func NewBDEDataset(pattern string) (*BDEDataset, error) {
	csvPaths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
	}
	if len(csvPaths) == 0 {
		return nil, fmt.Errorf("no CSV files found matching pattern: %s", pattern)
	}
	sort.Strings(csvPaths)

	ds := &BDEDataset{
		Pattern:   pattern,
		BatchSize: 32,
		csvPaths:  csvPaths,
		rowCounts: make(map[int]int),
	}

	if err := ds.initializeColumns(); err != nil {
		return nil, err
	}

	if err := ds.buildIndex(); err != nil {
		return nil, err
	}

	return ds, nil
}

// initializeColumns reads the first CSV header to locate the reaction, value,
// and feature columns, and to fix the feature vector width.
func (d *BDEDataset) initializeColumns() error {
	file, err := os.Open(d.csvPaths[0])
	if err != nil {
		return fmt.Errorf("failed to open first CSV %s: %w", d.csvPaths[0], err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	d.reactionCol = -1
	d.valueCol = -1
	feats := make(map[int]int) // feature position -> column index
	for i, col := range header {
		name := strings.TrimSpace(strings.ToLower(col))
		switch {
		case name == "reaction":
			d.reactionCol = i
		case name == "bde":
			d.valueCol = i
		case strings.HasPrefix(name, "feat_"):
			pos, err := strconv.Atoi(strings.TrimPrefix(name, "feat_"))
			if err != nil {
				return fmt.Errorf("malformed feature column %q: %w", col, err)
			}
			feats[pos] = i
		}
	}

	if d.reactionCol < 0 {
		return fmt.Errorf("required column %q not found in CSV", "reaction")
	}
	if d.valueCol < 0 {
		return fmt.Errorf("required column %q not found in CSV", "bde")
	}
	if len(feats) == 0 {
		return fmt.Errorf("no feat_* columns found in CSV header")
	}

	// Feature columns must form a contiguous run feat_0..feat_{k-1}.
	d.featCols = make([]int, len(feats))
	for pos := range d.featCols {
		col, ok := feats[pos]
		if !ok {
			return fmt.Errorf("feature columns are not contiguous: feat_%d missing", pos)
		}
		d.featCols[pos] = col
	}

	return nil
}

// buildIndex counts rows in all files, builds cumulative counts, and computes
// target normalization stats from the raw label column.
func (d *BDEDataset) buildIndex() error {
	d.cumCounts = make([]int, len(d.csvPaths)+1)
	d.cumCounts[0] = 0

	var raw []float64
	for i, path := range d.csvPaths {
		values, err := d.scanLabels(path)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", path, err)
		}
		d.rowCounts[i] = len(values)
		d.cumCounts[i+1] = d.cumCounts[i] + len(values)
		raw = append(raw, values...)
	}
	d.totalExamples = d.cumCounts[len(d.csvPaths)]

	if d.totalExamples < 2 {
		return fmt.Errorf("need at least 2 examples to normalize targets, got %d", d.totalExamples)
	}
	mean, stdev := stat.MeanStdDev(raw, nil)
	if !(stdev > 0) {
		return fmt.Errorf("target stdev must be positive, got %v", stdev)
	}
	d.stats = Stats{TargetMean: float32(mean), TargetStdev: float32(stdev)}

	return nil
}

// scanLabels reads the raw bde column of one file.
func (d *BDEDataset) scanLabels(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var values []float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		v, err := parseFloat32(record[d.valueCol])
		if err != nil {
			return nil, fmt.Errorf("failed to parse bde at row %d: %w", len(values), err)
		}
		values = append(values, float64(v))
	}
	return values, nil
}

// Len returns the total number of examples across all CSV files
func (d *BDEDataset) Len() int {
	return d.totalExamples
}

// FeatureSize returns the width of the feature vectors.
func (d *BDEDataset) FeatureSize() int {
	return len(d.featCols)
}

// Stats returns the target normalization scalars.
func (d *BDEDataset) Stats() Stats {
	return d.stats
}

// Example reads a single example by global index
func (d *BDEDataset) Example(idx int) (features []float32, value float32, reaction string, err error) {
	if idx < 0 || idx >= d.totalExamples {
		return nil, 0, "", fmt.Errorf("index %d out of range [0, %d)", idx, d.totalExamples)
	}

	fileIdx, localIdx := d.mapGlobalIndex(idx)
	return d.readExample(fileIdx, localIdx)
}

// mapGlobalIndex maps a global index to (file index, row index within file)
func (d *BDEDataset) mapGlobalIndex(globalIdx int) (fileIdx, localIdx int) {
	for i := range len(d.csvPaths) {
		if globalIdx < d.cumCounts[i+1] {
			return i, globalIdx - d.cumCounts[i]
		}
	}
	// Should never reach here if globalIdx is valid
	return len(d.csvPaths) - 1, d.rowCounts[len(d.csvPaths)-1] - 1
}

// parseRow extracts one example from a CSV record, normalizing the target.
func (d *BDEDataset) parseRow(record []string) ([]float32, float32, string, error) {
	features := make([]float32, len(d.featCols))
	for i, col := range d.featCols {
		v, err := parseFloat32(record[col])
		if err != nil {
			return nil, 0, "", fmt.Errorf("failed to parse feat_%d: %w", i, err)
		}
		features[i] = v
	}

	raw, err := parseFloat32(record[d.valueCol])
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to parse bde: %w", err)
	}
	value := (raw - d.stats.TargetMean) / d.stats.TargetStdev

	return features, value, strings.TrimSpace(record[d.reactionCol]), nil
}

// readExample reads a specific example from a file
func (d *BDEDataset) readExample(fileIdx, rowIdx int) ([]float32, float32, string, error) {
	file, err := os.Open(d.csvPaths[fileIdx])
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to open CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, 0, "", fmt.Errorf("failed to read header: %w", err)
	}

	// Skip to the desired row
	for range rowIdx {
		if _, err := reader.Read(); err != nil {
			return nil, 0, "", fmt.Errorf("failed to skip to row %d: %w", rowIdx, err)
		}
	}

	record, err := reader.Read()
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to read row %d: %w", rowIdx, err)
	}

	return d.parseRow(record)
}

// Batch reads multiple examples by their indices
func (d *BDEDataset) Batch(indices []int) ([][]float32, []float32, []string, error) {
	features := make([][]float32, len(indices))
	values := make([]float32, len(indices))
	reactions := make([]string, len(indices))

	// Group indices by file for more efficient reading
	fileGroups := make(map[int][]struct{ globalIdx, batchPos int })
	for batchPos, idx := range indices {
		if idx < 0 || idx >= d.totalExamples {
			return nil, nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, d.totalExamples)
		}
		fileIdx, _ := d.mapGlobalIndex(idx)
		fileGroups[fileIdx] = append(fileGroups[fileIdx], struct{ globalIdx, batchPos int }{idx, batchPos})
	}

	// Process each file's indices together
	for fileIdx, group := range fileGroups {
		if err := d.readBatchFromFile(fileIdx, group, features, values, reactions); err != nil {
			return nil, nil, nil, err
		}
	}

	return features, values, reactions, nil
}

// readBatchFromFile reads multiple examples from a single file
func (d *BDEDataset) readBatchFromFile(fileIdx int, indices []struct{ globalIdx, batchPos int },
	features [][]float32, values []float32, reactions []string) error {

	file, err := os.Open(d.csvPaths[fileIdx])
	if err != nil {
		return fmt.Errorf("failed to open CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	// Map local row indices to batch positions
	localMap := make(map[int][]int)
	for _, item := range indices {
		_, localIdx := d.mapGlobalIndex(item.globalIdx)
		localMap[localIdx] = append(localMap[localIdx], item.batchPos)
	}

	rowIdx := 0
	remaining := len(indices)
	for remaining > 0 {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}

		if positions, ok := localMap[rowIdx]; ok {
			f, v, r, err := d.parseRow(record)
			if err != nil {
				return fmt.Errorf("row %d: %w", rowIdx, err)
			}
			for _, batchPos := range positions {
				features[batchPos] = f
				values[batchPos] = v
				reactions[batchPos] = r
			}
			remaining -= len(positions)
		}

		rowIdx++
	}

	if remaining > 0 {
		return fmt.Errorf("file %s ended before all requested rows were read", d.csvPaths[fileIdx])
	}

	return nil
}

// Name returns the name of the dataset
func (d *BDEDataset) Name() string {
	return "BDEDataset"
}

package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
	"github.com/google/uuid"
)

const projectFileName = utils.ProjectFile

// ErrNotFound is returned when a project directory has no project.json.
var ErrNotFound = errors.New("project not found")

// Project groups score sheets and the reports generated from them.
type Project struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Datasets    map[string]*DatasetRef `json:"datasets"`
	Reports     map[string]*ReportRef  `json:"reports"`
	Config      *ProjectConfig         `json:"config"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// ProjectConfig overrides the global column layout for this project's sheets.
type ProjectConfig struct {
	NameColumn  string   `json:"name_column,omitempty"`
	IDColumn    string   `json:"id_column,omitempty"`
	GroupColumn string   `json:"group_column,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
}

// Apply overlays the non-empty overrides onto opt.
func (c *ProjectConfig) Apply(opt dataset.LoadOptions) dataset.LoadOptions {
	if c == nil {
		return opt
	}
	if c.NameColumn != "" {
		opt.NameColumn = c.NameColumn
	}
	if c.IDColumn != "" {
		opt.IDColumn = c.IDColumn
	}
	if c.GroupColumn != "" {
		opt.GroupColumn = c.GroupColumn
	}
	if len(c.Subjects) > 0 {
		opt.Subjects = append([]string(nil), c.Subjects...)
	}
	return opt
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*DatasetRef),
		Reports:     make(map[string]*ReportRef),
		Config:      &ProjectConfig{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, projectFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*DatasetRef)
	}
	if p.Reports == nil {
		p.Reports = make(map[string]*ReportRef)
	}
	p.rootDir = dir
	return &p, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, projectFileName), data)
}

// AddDataset loads a score sheet to validate it and records its shape.
func (p *Project) AddDataset(path, description string, l *dataset.Loader) (*DatasetRef, error) {
	if l == nil {
		l = dataset.NewLoader(nil)
	}
	ds, err := l.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	ref := &DatasetRef{
		ID:          uuid.NewString(),
		Path:        abs,
		Name:        filepath.Base(path),
		Description: description,
		Students:    ds.Len(),
		Subjects:    ds.Subjects(),
		Fingerprint: fmt.Sprintf("%016x", ds.Fingerprint()),
		AddedAt:     time.Now(),
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*DatasetRef)
	}
	p.Datasets[ref.ID] = ref
	p.UpdatedAt = time.Now()
	return ref, nil
}

// AddReport records a written report generated from datasetID (which may be
// empty for ad-hoc sources).
func (p *Project) AddReport(path, description, datasetID string) (*ReportRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat report: %w", err)
	}
	ref := &ReportRef{
		ID:          uuid.NewString(),
		Path:        path,
		Name:        filepath.Base(path),
		Description: description,
		DatasetID:   datasetID,
		Bytes:       info.Size(),
		CreatedAt:   time.Now(),
	}
	if p.Reports == nil {
		p.Reports = make(map[string]*ReportRef)
	}
	p.Reports[ref.ID] = ref
	p.UpdatedAt = time.Now()
	return ref, nil
}

// RemoveDataset drops a dataset reference by ID or file name.
func (p *Project) RemoveDataset(key string) (*DatasetRef, error) {
	for id, d := range p.Datasets {
		if id == key || d.Name == key {
			delete(p.Datasets, id)
			p.UpdatedAt = time.Now()
			return d, nil
		}
	}
	return nil, fmt.Errorf("dataset %q not in project %s", key, p.Name)
}

// Latest returns the most recently added dataset.
func (p *Project) Latest() (*DatasetRef, bool) {
	ds := p.SortedDatasets()
	if len(ds) == 0 {
		return nil, false
	}
	return ds[len(ds)-1], true
}

// SortedDatasets lists datasets oldest first.
func (p *Project) SortedDatasets() []*DatasetRef {
	out := make([]*DatasetRef, 0, len(p.Datasets))
	for _, d := range p.Datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// SortedReports lists reports oldest first.
func (p *Project) SortedReports() []*ReportRef {
	out := make([]*ReportRef, 0, len(p.Reports))
	for _, r := range p.Reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

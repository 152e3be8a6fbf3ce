package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Site    SiteConfig        `yaml:"site"`
	Vault   VaultConfig       `yaml:"vault"`
	Output  OutputConfig      `yaml:"output"`
	Folders []FolderConfig    `yaml:"folders"`
	Map     MapConfig         `yaml:"map"`
	Catalog CatalogConfig     `yaml:"catalog"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.checkOutputPath(); err != nil {
		return err
	}
	if err := validation.Validate(c.Folders, validation.Required); err != nil {
		return fmt.Errorf("folders: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Folders))
	for i := range c.Folders {
		f := &c.Folders[i]
		if err := f.Validate(); err != nil {
			return fmt.Errorf("folders[%d]: %w", i, err)
		}
		if f.Name == c.Vault.ImagesFolder {
			return fmt.Errorf("folders[%d]: %q is the images folder", i, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("folders[%d]: duplicate folder %q", i, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return c.Map.Validate()
}

// checkOutputPath rejects an output directory that is the vault or one of
// its ancestors, since every build empties the output directory.
func (c *Config) checkOutputPath() error {
	out, err := filepath.Abs(c.Output.Path)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	vault, err := filepath.Abs(c.Vault.Path)
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	rel, err := filepath.Rel(out, vault)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return fmt.Errorf("output: path %q must not contain the vault %q", c.Output.Path, c.Vault.Path)
	}
	return nil
}

// Categories maps each folder to its search category label.
func (c *Config) Categories() map[string]string {
	out := make(map[string]string, len(c.Folders))
	for _, f := range c.Folders {
		if f.Category != "" {
			out[f.Name] = f.Category
		}
	}
	return out
}

// MapDataPath returns the plugin data file location, resolved against the
// vault when relative.
func (c *Config) MapDataPath() string {
	if filepath.IsAbs(c.Map.DataPath) {
		return c.Map.DataPath
	}
	return filepath.Join(c.Vault.Path, filepath.FromSlash(c.Map.DataPath))
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds dev server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig holds presentation settings.
type SiteConfig struct {
	Title string `yaml:"title"`
	// LiveReload injects the reload script into pages built by serve.
	LiveReload bool `yaml:"live_reload"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
	)
}

// VaultConfig locates the Markdown vault.
type VaultConfig struct {
	Path         string `yaml:"path"`
	ImagesFolder string `yaml:"images_folder"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ImagesFolder, validation.Required),
	)
}

// OutputConfig locates the generated site.
type OutputConfig struct {
	Path string `yaml:"path"`
	// AssetsDir optionally overrides the bundled styles.css and search.js;
	// its images/ folder is copied into the site images folder.
	AssetsDir string `yaml:"assets_dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// FolderConfig describes one top-level vault folder.
type FolderConfig struct {
	Name     string `yaml:"name"`
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
	Home     bool   `yaml:"home"`
}

// Validate validates the folder configuration.
func (c *FolderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Title, validation.Required),
	)
}

// MapConfig describes the interactive map note. An empty Note disables it.
type MapConfig struct {
	Note        string `yaml:"note"`
	DataPath    string `yaml:"data_path"`
	MapID       string `yaml:"map_id"`
	Image       string `yaml:"image"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Validate validates the map configuration.
func (c *MapConfig) Validate() error {
	on := c.Note != ""
	return validation.ValidateStruct(c,
		validation.Field(&c.DataPath, validation.When(on, validation.Required)),
		validation.Field(&c.MapID, validation.When(on, validation.Required)),
		validation.Field(&c.Image, validation.When(on, validation.Required)),
		validation.Field(&c.Width, validation.When(on, validation.Required, validation.Min(1))),
		validation.Field(&c.Height, validation.When(on, validation.Required, validation.Min(1))),
		validation.Field(&c.Title, validation.When(on, validation.Required)),
	)
}

// CatalogConfig locates the optional SQLite catalog. An empty Path disables it.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			Title:      "Curse of Strahd Campaign",
			LiveReload: true,
		},
		Vault: VaultConfig{
			Path:         "./vault",
			ImagesFolder: "_images",
		},
		Output: OutputConfig{
			Path: "./site",
		},
		Folders: []FolderConfig{
			{Name: "1_SessionNotes", Title: "Session Notes", Category: "Session Notes", Home: true},
			{Name: "2_Locations", Title: "Locations", Category: "Locations", Home: true},
			{Name: "3_Characters", Title: "Characters", Category: "Characters", Home: true},
			{Name: "4_Items", Title: "Items", Category: "Items", Home: true},
			{Name: "5_Concepts", Title: "Concepts", Category: "Concepts", Home: true},
			{Name: "7_Quests", Title: "Quests", Category: "Quests", Home: true},
			{Name: "8_Custom", Title: "Custom"},
		},
		Map: MapConfig{
			Note:        "_Map",
			DataPath:    "_data/LeafletMaps/plugins/obsidian-leaflet-plugin/data.json",
			MapID:       "leaflet-map",
			Image:       "Barovia.jpg",
			Width:       5025,
			Height:      3225,
			Title:       "Barovia Map",
			Description: "Interactive map of Barovia with locations and markers",
		},
	}
}

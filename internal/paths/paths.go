package paths

import (
	"os"
	"path/filepath"

	"github.com/quantmind-br/tkblender/internal/config"
)

// Resolver centraliza caminhos padrão do tkblender.
// Ele calcula diretórios base a partir de HOME e da configuração.
type Resolver struct {
	homeDir string
	cfg     *config.Config
}

// NewResolver cria um Resolver usando o HOME do usuário atual.
func NewResolver(cfg *config.Config) *Resolver {
	homeDir, _ := os.UserHomeDir()
	return &Resolver{
		homeDir: homeDir,
		cfg:     cfg,
	}
}

// NewResolverWithHome cria um Resolver com homeDir explícito (útil para testes).
func NewResolverWithHome(cfg *config.Config, homeDir string) *Resolver {
	return &Resolver{
		homeDir: homeDir,
		cfg:     cfg,
	}
}

// HomeDir retorna o diretório HOME resolvido.
func (r *Resolver) HomeDir() string {
	return r.homeDir
}

// GetDataDir retorna o diretório de dados do engine.
// Por padrão: ~/.local/share/tkblender, respeitando cfg.Paths.DataDir se definido.
func (r *Resolver) GetDataDir() string {
	if r.cfg != nil && r.cfg.Paths.DataDir != "" {
		return r.cfg.Paths.DataDir
	}
	return filepath.Join(r.homeDir, ".local", "share", "tkblender")
}

// GetIconPath retorna o ícone do engine, usado porque o Blender não
// distribui um ícone na sua estrutura de instalação.
func (r *Resolver) GetIconPath() string {
	return filepath.Join(r.GetDataDir(), "icon_256.png")
}

// GetScriptsDir retorna o diretório exportado como BLENDER_USER_SCRIPTS.
func (r *Resolver) GetScriptsDir() string {
	if r.cfg != nil && r.cfg.Paths.ScriptsDir != "" {
		return r.cfg.Paths.ScriptsDir
	}
	return filepath.Join(r.GetDataDir(), "resources", "scripts")
}

// GetMenuStartupScript retorna o script passado ao Blender com -P.
func (r *Resolver) GetMenuStartupScript() string {
	return filepath.Join(r.GetScriptsDir(), "startup", "ShotGrid_menu.py")
}

// GetEngineStartupScript retorna o script de bootstrap do engine.
func (r *Resolver) GetEngineStartupScript() string {
	return filepath.Join(r.GetDataDir(), "startup", "bootstrap.py")
}

// GetModulePath retorna o caminho do módulo do toolkit.
func (r *Resolver) GetModulePath() string {
	if r.cfg != nil && r.cfg.Paths.ModulePath != "" {
		return r.cfg.Paths.ModulePath
	}
	return filepath.Join(r.GetDataDir(), "python")
}

// GetPySidePath retorna o diretório com os bindings Qt distribuídos com o engine.
func (r *Resolver) GetPySidePath() string {
	if r.cfg != nil && r.cfg.Paths.PySidePath != "" {
		return r.cfg.Paths.PySidePath
	}
	return filepath.Join(r.GetModulePath(), "ext")
}

// GetLaunchScriptsDir retorna onde os scripts de lançamento gerados são gravados.
func (r *Resolver) GetLaunchScriptsDir() string {
	return filepath.Join(r.GetDataDir(), "launch")
}

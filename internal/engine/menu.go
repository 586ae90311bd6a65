package engine

// Default menu names
const (
	MenuName     = "ShotGrid"
	SgtkMenuName = "Sgtk"
)

// Command is an app command registered with the engine
type Command struct {
	Name        string
	AppInstance string
	Callback    func()
}

// MenuItem is an entry of the toolkit menu
type MenuItem struct {
	Name        string
	AppInstance string
	Enabled     bool
}

// Menu is the toolkit menu built from the registered commands. A disabled
// menu keeps its items but none of them can run.
type Menu struct {
	Name    string
	Enabled bool
	Items   []MenuItem
}

func buildMenu(name string, commands []Command, disabled bool) *Menu {
	menu := &Menu{Name: name, Enabled: !disabled}
	for _, cmd := range commands {
		menu.Items = append(menu.Items, MenuItem{
			Name:        cmd.Name,
			AppInstance: cmd.AppInstance,
			Enabled:     !disabled,
		})
	}
	return menu
}

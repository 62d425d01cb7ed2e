package hotkey

// Intent is a keyboard action routed to the session coordinator.
type Intent int

const (
	ToggleSettingsPanel Intent = iota
	ToggleFullscreen
	VolumeUp
	VolumeDown
	ToggleMute
	ManualSync
)

func (i Intent) String() string {
	switch i {
	case ToggleSettingsPanel:
		return "ToggleSettingsPanel"
	case ToggleFullscreen:
		return "ToggleFullscreen"
	case VolumeUp:
		return "VolumeUp"
	case VolumeDown:
		return "VolumeDown"
	case ToggleMute:
		return "ToggleMute"
	case ManualSync:
		return "ManualSync"
	}
	return "Unknown"
}

// Intents lists every routable intent.
func Intents() []Intent {
	return []Intent{
		ToggleSettingsPanel,
		ToggleFullscreen,
		VolumeUp,
		VolumeDown,
		ToggleMute,
		ManualSync,
	}
}

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(intent Intent, callback func()) error
	Close() error
}

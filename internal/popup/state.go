package popup

// UIState is the visibility of the popup's three interactive elements.
type UIState struct {
	ConnectVisible bool `json:"connectVisible"`
	InputVisible   bool `json:"inputVisible"`
	SendVisible    bool `json:"sendVisible"`
}

// StateFor returns the UI state for a popup with or without a current channel.
func StateFor(connected bool) UIState {
	if connected {
		return UIState{InputVisible: true, SendVisible: true}
	}
	return UIState{ConnectVisible: true}
}

// Connected reports whether the state is the connected one.
func (s UIState) Connected() bool {
	return s.SendVisible
}

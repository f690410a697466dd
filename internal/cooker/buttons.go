package cooker

// Logical panel buttons, as delivered by the debouncing collaborator.
const (
	ButtonSelect = 0
	ButtonMode   = 1
	ButtonMinus  = 2
	ButtonPlus   = 3
	ButtonRun    = 4

	NumButtons = 5
)

// PressButton routes one debounced press edge to the matching transition.
// Presses that have no effect in the current state are swallowed; only run
// edges produce notifications.
func (c *Controller) PressButton(button int) []Event {
	switch button {
	case ButtonSelect:
		c.SelectNextChamber()
	case ButtonMode:
		c.ToggleSettingMode()
	case ButtonMinus:
		c.DecrementValue()
	case ButtonPlus:
		c.IncrementValue()
	case ButtonRun:
		return c.ToggleRun()
	}
	return nil
}

package models

import "time"

// ChamberStatus is the externally visible view of one heating chamber.
type ChamberStatus struct {
	TargetTempC   int     `json:"target_temp_c"`  // °C, 0 means not configured
	CurrentTempC  float64 `json:"current_temp_c"` // °C, -999.0 means no valid reading
	TargetTimeMin int     `json:"target_time_min"`
	RemainingMin  int     `json:"remaining_min"`
	Active        bool    `json:"active"`
	AtTemperature bool    `json:"at_temperature"`
	TimerStarted  bool    `json:"timer_started"`
	HeaterOn      bool    `json:"heater_on"`
}

// CookerState is the current snapshot of the whole cooker.
type CookerState struct {
	State           string           `json:"state"`        // IDLE | SETTING | RUNNING | PAUSED
	SettingMode     string           `json:"setting_mode"` // TEMPERATURE | TIME
	SelectedChamber int              `json:"selected_chamber"`
	Chambers        [3]ChamberStatus `json:"chambers"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

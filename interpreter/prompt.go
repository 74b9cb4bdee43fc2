package interpreter

import (
	"encoding/json"
	"fmt"
)

const promptTemplate = `
You are a home assistant. Your task is to interpret a user's command and respond with a single JSON object.
The available devices and their current states are:
%s
The user's command is: %q
Your response MUST be a single JSON object with two keys: "actions" and "reply".
- "reply": A friendly, conversational reply to the user.
- "actions": A list of JSON objects, where each object represents a single device to control.
  - Each object in the list must have: "action" ("turn_on" or "turn_off"), "device_ip", and "relay_index".
  - If the command requires no action, the "actions" list should be empty.
CRITICAL RULES:
1.  If the user says "all", "everything", or a room name, you MUST generate an action for EACH relevant device.
2.  Before generating an action, you MUST check the "currentState". Do not generate a "turn_on" action for a device that is already "on". Do not generate a "turn_off" action for a device that is already "off".
3.  If all relevant devices are already in the requested state, the "actions" list must be empty, and your reply should inform the user.
`

// BuildPrompt renders the instruction contract for the model.
func BuildPrompt(text string, devices []DeviceInfo) (string, error) {
	if devices == nil {
		devices = []DeviceInfo{}
	}

	encoded, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(promptTemplate, encoded, text), nil
}

package llm

import (
	"encoding/json"
	"fmt"
)

const systemPrompt = `You are a Galactic Starfighter (SWTOR) build analyst. The data contains a
set of ship builds and a time-to-kill matrix: each row build attacks each
column build at the given distance (in hundreds of metres). A cell without a
time names the reason the kill is impossible.

Provide:
1. Which builds are strongest overall and why, citing matrix values
2. Matchups each build should avoid
3. Builds that cannot kill some opponents at this range and what would fix it
4. Concrete component or upgrade changes worth testing

Keep it concise and factual. Do not use emojis.`

// userPrompt renders the analysis payload sent after the system prompt.
func userPrompt(data any) (string, error) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal build data: %w", err)
	}
	return fmt.Sprintf("Build data:\n\n%s\n\nProvide a build matchup review.", body), nil
}

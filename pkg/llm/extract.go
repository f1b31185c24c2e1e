package llm

import "strings"

// ExtractJSON isolates a JSON object from raw model output. Models asked
// for bare JSON still wrap it in thinking tags, markdown code fences, or
// surrounding prose often enough that callers should not unmarshal the
// content directly.
func ExtractJSON(content string) string {
	jsonStr := content

	// Remove thinking tags if present
	if startIdx := strings.Index(jsonStr, "<thinking>"); startIdx != -1 {
		if endIdx := strings.Index(jsonStr, "</thinking>"); endIdx != -1 {
			jsonStr = jsonStr[:startIdx] + jsonStr[endIdx+len("</thinking>"):]
		}
	}

	// Remove markdown code fences if present
	if idx := strings.Index(jsonStr, "```json"); idx != -1 {
		jsonStr = jsonStr[idx+7:]
		if endIdx := strings.Index(jsonStr, "```"); endIdx != -1 {
			jsonStr = jsonStr[:endIdx]
		}
	} else if idx := strings.Index(jsonStr, "```"); idx != -1 {
		jsonStr = jsonStr[idx+3:]
		if endIdx := strings.Index(jsonStr, "```"); endIdx != -1 {
			jsonStr = jsonStr[:endIdx]
		}
	}

	// Narrow to the outermost object boundaries
	start := strings.Index(jsonStr, "{")
	end := strings.LastIndex(jsonStr, "}")
	if start != -1 && end != -1 && end > start {
		jsonStr = jsonStr[start : end+1]
	}

	return strings.TrimSpace(jsonStr)
}

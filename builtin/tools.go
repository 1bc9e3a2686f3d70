package builtin

import (
	"encoding/json"

	"github.com/fwojciec/deck"
)

// ToolNameList is the read-only tool listing the slide's infographics.
const ToolNameList = "listInfographics"

type createArgs struct {
	Title  string `json:"title"`
	Syntax string `json:"syntax"`
}

type editArgs struct {
	InfographicID string `json:"infographicId"`
	Syntax        string `json:"syntax"`
}

type deleteArgs struct {
	InfographicID string `json:"infographicId"`
}

// CreateTool returns the definition of createInfographic.
func CreateTool() deck.Tool {
	return deck.Tool{
		Name:        deck.ToolNameCreate,
		Description: "Create a new infographic on the current slide from AntV Infographic Syntax. The infographic is shown while the syntax streams.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {
					"type": "string",
					"description": "Short name of the infographic"
				},
				"syntax": {
					"type": "string",
					"description": "Complete AntV Infographic Syntax, starting with the infographic line"
				}
			},
			"required": ["syntax"]
		}`),
	}
}

// EditTool returns the definition of editInfographic.
func EditTool() deck.Tool {
	return deck.Tool{
		Name:        deck.ToolNameEdit,
		Description: "Replace the syntax of an existing infographic. Always send the full syntax, not a diff.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"infographicId": {
					"type": "string",
					"description": "Id of the infographic to edit, as returned by listInfographics or createInfographic"
				},
				"syntax": {
					"type": "string",
					"description": "Complete replacement AntV Infographic Syntax"
				}
			},
			"required": ["infographicId", "syntax"]
		}`),
	}
}

// DeleteTool returns the definition of deleteInfographic.
func DeleteTool() deck.Tool {
	return deck.Tool{
		Name:        deck.ToolNameDelete,
		Description: "Remove an infographic from the current slide.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"infographicId": {
					"type": "string",
					"description": "Id of the infographic to delete"
				}
			},
			"required": ["infographicId"]
		}`),
	}
}

// ListTool returns the definition of listInfographics.
func ListTool() deck.Tool {
	return deck.Tool{
		Name:        ToolNameList,
		Description: "List the infographics on the current slide in display order with their ids and syntax.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	}
}

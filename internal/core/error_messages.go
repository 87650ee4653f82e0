package core

// error_messages.go maps technical errors to messages a seller can act on.
//
// # Error Codes Reference
//
// Storage (DB):
//
//	DB001 - Duplicate SKU           "sku already exists", "duplicate key"
//	DB002 - Connection refused      "connection refused"
//	DB003 - Connection reset        "connection reset"
//	DB004 - Timeout                 "timeout"
//
// Mapping and selection (VAL):
//
//	VAL001 - Required fields unmapped   "required fields are not mapped"
//	VAL002 - Column not found           "column not found"
//	VAL003 - Unknown target field       "unknown target field"
//	VAL004 - Invalid status             "invalid status"
//	VAL005 - Nothing selected           "no products selected"
//
// File (FILE):
//
//	FILE001 - Too large             "file too large"
//	FILE002 - Invalid CSV           "invalid csv"
//	FILE003 - Invalid XLSX          "invalid xlsx"
//	FILE004 - Unsupported type      "unsupported file type"
//	FILE005 - Empty file            "empty file"
//	FILE006 - Header only           "no data rows"
//	FILE007 - No file               "no file provided"
//
// Import session (IMP):
//
//	IMP001 - Wrong stage            "not allowed at this import stage"
//	IMP002 - Nothing to import      "no valid rows"
//	IMP003 - Session expired        "import session not found"
//	IMP004 - System busy            "too many imports"
//
// Saved mappings (PRE):
//
//	PRE001 - Preset not found       "mapping preset not found"
//	PRE002 - Preset name taken      "mapping preset name already exists"
//	PRE003 - Preset name missing    "mapping preset name is required"
//	PRE004 - Presets disabled       "mapping presets are not configured"
//
// Request (REQ) and rate limiting (RATE):
//
//	REQ001  - Cancelled             "context canceled"
//	REQ002  - Timed out             "context deadline exceeded"
//	RATE001 - Rate limited          "rate limit"
//
// ERR000 is the fallback; the original error is in the server log under the
// same request_id.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sellerdash/internal/importer"
)

// UserMessage is an error rewritten for the seller.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Storage
	{"sku already exists", UserMessage{"A product with this SKU already exists", "Use a unique SKU or edit the existing product", "DB001"}},
	{"duplicate key", UserMessage{"A product with this SKU already exists", "Use a unique SKU or edit the existing product", "DB001"}},
	{"connection refused", UserMessage{"Unable to reach product storage", "Please try again in a few moments", "DB002"}},
	{"connection reset", UserMessage{"Connection to product storage was interrupted", "Please try again", "DB003"}},

	// Request lifecycle; before the generic timeout pattern.
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "REQ002"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB004"}},

	// Mapping and selection
	{"required fields are not mapped", UserMessage{"Some required fields are not mapped", "Map a column to Product Name, SKU and Price", "VAL001"}},
	{"column not found", UserMessage{"That column is not in the uploaded file", "Pick a column from the file's header row", "VAL002"}},
	{"unknown target field", UserMessage{"That product field does not exist", "Choose a field from the list or Do not import", "VAL003"}},
	{"invalid status", UserMessage{"That status is not recognised", "Use draft, pending, published or rejected", "VAL004"}},
	{"no products selected", UserMessage{"No products are selected", "Select at least one product first", "VAL005"}},

	// File
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller files", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma separated with a header row", "FILE002"}},
	{"invalid xlsx", UserMessage{"File is not a valid Excel workbook", "Re-save the file as .xlsx or export it as CSV", "FILE003"}},
	{"unsupported file type", UserMessage{"This file type is not supported", "Upload a .csv or .xlsx file", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a file with a header row and product rows", "FILE005"}},
	{"no data rows", UserMessage{"The file has a header but no products", "Add at least one product row below the header", "FILE006"}},
	{"no file provided", UserMessage{"No file was selected", "Choose a CSV or Excel file to upload", "FILE007"}},

	// Import session
	{"not allowed at this import stage", UserMessage{"That step is not available right now", "Follow the import steps in order or start over", "IMP001"}},
	{"no valid rows", UserMessage{"There are no valid rows to import", "Fix the errors in your file and upload it again", "IMP002"}},
	{"import session not found", UserMessage{"Import session not found", "The session may have expired. Please start a new import", "IMP003"}},
	{"too many imports", UserMessage{"The system is busy with other imports", "Please wait a moment and try again", "IMP004"}},

	// Mapping presets
	{"mapping preset not found", UserMessage{"Saved mapping not found", "It may have been deleted. Pick another or map columns by hand", "PRE001"}},
	{"mapping preset name already exists", UserMessage{"A saved mapping with this name already exists", "Choose a different name", "PRE002"}},
	{"mapping preset name is required", UserMessage{"The saved mapping needs a name", "Enter a name and save again", "PRE003"}},
	{"mapping presets are not configured", UserMessage{"Saved mappings are not available", "Map the columns by hand", "PRE004"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message, falling
// back to ERR000. Parse errors match on their reason only, so a file name
// cannot select the message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	var pe *importer.ParseError
	if errors.As(err, &pe) {
		errStr = strings.ToLower(pe.Reason)
	}
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

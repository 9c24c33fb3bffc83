// Package schemas embeds the JSON Schemas for the files this tool writes.
package schemas

import _ "embed"

// ProfileRecordFile is the schema's file name inside this directory.
const ProfileRecordFile = "profile_record.schema.json"

// ProfileRecord is the JSON Schema for one output record.
//
//go:embed profile_record.schema.json
var ProfileRecord string

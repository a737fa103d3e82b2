package server

import "github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/validation"

// Request body schema names.
const (
	SchemaCreateProduct   = "create-product"
	SchemaAddMember       = "add-member"
	SchemaTranscodeResult = "transcode-result"
)

const createProductSchema = `{
  "type": "object",
  "required": ["title", "priceCents"],
  "additionalProperties": false,
  "properties": {
    "title": {"type": "string", "minLength": 1, "maxLength": 200},
    "description": {"type": "string", "maxLength": 5000},
    "priceCents": {"type": "integer", "minimum": 0},
    "currency": {"type": "string", "pattern": "^[A-Z]{3}$"}
  }
}`

const addMemberSchema = `{
  "type": "object",
  "required": ["email", "role"],
  "additionalProperties": false,
  "properties": {
    "email": {"type": "string", "minLength": 3, "maxLength": 320, "pattern": "^[^@\\s]+@[^@\\s]+$"},
    "role": {"enum": ["owner", "admin", "creator", "subscriber", "member"]}
  }
}`

// transcodeResultSchema matches the payload posted by the transcode worker.
const transcodeResultSchema = `{
  "type": "object",
  "required": ["status", "mediaId"],
  "properties": {
    "status": {"enum": ["completed", "failed"]},
    "mediaId": {"type": "string", "minLength": 1, "maxLength": 128},
    "hlsMasterPlaylistKey": {"type": ["string", "null"]},
    "hlsPreviewKey": {"type": ["string", "null"]},
    "thumbnailKey": {"type": ["string", "null"]},
    "waveformKey": {"type": ["string", "null"]},
    "waveformImageKey": {"type": ["string", "null"]},
    "mezzanineKey": {"type": ["string", "null"]},
    "durationSeconds": {"type": ["integer", "null"], "minimum": 0},
    "width": {"type": ["integer", "null"], "minimum": 0},
    "height": {"type": ["integer", "null"], "minimum": 0},
    "readyVariants": {"type": "array", "items": {"type": "string"}},
    "error": {"type": ["string", "null"]}
  }
}`

// NewRequestValidator returns a validator with every request schema
// registered.
func NewRequestValidator(cacheSize int) (*validation.SchemaValidator, error) {
	v, err := validation.NewSchemaValidator(cacheSize)
	if err != nil {
		return nil, err
	}
	for name, src := range map[string]string{
		SchemaCreateProduct:   createProductSchema,
		SchemaAddMember:       addMemberSchema,
		SchemaTranscodeResult: transcodeResultSchema,
	} {
		if err := v.Register(name, src); err != nil {
			return nil, err
		}
	}
	return v, nil
}

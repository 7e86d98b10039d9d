// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides key, slug and ID generation for canvasses.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(canvassID, salt)
	err := auth.ValidateAdminKey(canvassID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same canvass ID and salt always produce the same key. This allows
validation without storing the key in the database.

# Walk Slugs

Each walking unit of a plan gets a public link to its walk sheet:

	slug := auth.GenerateWalkSlug(canvassID, unitID, generation, salt)

Slugs are base62 encoded (alphanumeric only) for easy sharing by text
message. The generation is bumped every time the plan is rebuilt, so links
handed out for an old plan stop resolving.

# ID Generation

Random hex IDs for canvasses:

	id, err := auth.GenerateID(16)  // 32 hex characters

# IP Hashing

Uploads record a salted hash of the uploader's address:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth

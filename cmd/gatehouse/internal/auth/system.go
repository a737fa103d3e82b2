package auth

// SystemUserID is the well-known UUID for the system user, used for attributing
// records written by the CLI rather than by an authenticated principal
// (e.g. memberships added with `gatehouse orgs add-member`).
const SystemUserID = "00000000-0000-0000-0000-000000000000"

// Package auth provides token authentication for the viewer API.
//
// Clients present an HS256 JWT access token signed with the configured
// secret. The token's role claim maps to a static permission set
// (viewer → editor → admin) checked by the API middleware; there is no
// user database. Tokens are minted by the operator with
// `graylogic-viewer -issue-token <subject>`.
package auth

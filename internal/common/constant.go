package common

// AuthorizationHeader is the HTTP header used to carry the access token
// on authorized requests, in "Bearer <token>" form.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the access token inside the Authorization header.
const BearerPrefix = "Bearer "

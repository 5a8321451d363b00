package routes

import (
	"tablematch/gateway"
	"tablematch/live"
	"tablematch/middleware"
	"tablematch/profile"
	"tablematch/ratelim"

	"github.com/julienschmidt/httprouter"
)

// AddSessionRoutes wires the session lifecycle endpoints.
func AddSessionRoutes(router *httprouter.Router, g *gateway.Gateway, rateLimiter *ratelim.RateLimiter) {
	authed := middleware.Chain(middleware.Authenticate)

	router.POST("/api/session", authed(g.CreateSession))
	router.GET("/api/session/code/:code", authed(g.ResolveRoomCode))
	router.GET("/api/session/current", authed(g.CurrentSession))
	router.POST("/api/session/leave", authed(g.Leave))
	router.PUT("/api/session/preferences", authed(g.UpdatePreferences))
	router.PUT("/api/session/location", authed(g.UpdateLocation))

	router.GET("/api/sessions/:sessionid", authed(g.GetSession))
	router.POST("/api/sessions/:sessionid/join", authed(g.Join))

	// Recomputes hit the external search provider, so they get the tighter
	// rate limit on top of auth. Auth runs first so the limiter keys on the
	// participant ID rather than the remote address.
	router.GET("/api/sessions/:sessionid/matches",
		middleware.Chain(middleware.Authenticate, rateLimiter.Limit)(g.FindMatches))
}

// AddProfileRoutes wires the user profile endpoints.
func AddProfileRoutes(router *httprouter.Router) {
	authed := middleware.Chain(middleware.Authenticate)

	router.GET("/api/profile", authed(profile.GetProfile))
	router.PUT("/api/profile", authed(profile.UpdateProfile))
	router.POST("/api/profile/favorites", authed(profile.AddFavoriteVenue))
}

// AddLiveRoutes wires the websocket endpoint for session change streams.
func AddLiveRoutes(router *httprouter.Router, hub *live.Hub) {
	router.GET("/ws/sessions/:sessionid", live.ServeWS(hub))
}

package rest

import (
	"net/http"

	"github.com/bwise1/forest_places/internal/model"
	"github.com/bwise1/forest_places/util"
	"github.com/bwise1/forest_places/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) AuthRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/session", Handler(api.CurrentSession))
	mux.Method(http.MethodPost, "/logout", Handler(api.Logout))

	mux.Group(func(r chi.Router) {
		r.Use(limitRemoteWrites(20))
		r.Method(http.MethodPost, "/login", Handler(api.Login))
		r.Method(http.MethodPost, "/register", Handler(api.Register))
	})
	return mux
}

// profile is the session as shown to the surface, without credentials.
type profile struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

func profileOf(s model.Session) profile {
	return profile{UserID: s.UserID, Username: s.Username, Email: s.Email, Role: s.Role}
}

func (api *API) Login(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req model.LoginRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	resp, err := api.Deps.PlacesAPI.Login(r.Context(), req)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	sess, err := api.Deps.Session.SignIn(r.Context(), resp)
	if err != nil {
		return respondWithError(err, "unable to store session", values.Error, &tc)
	}
	return success("signed in", profileOf(sess))
}

func (api *API) Register(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req model.RegisterRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	resp, err := api.Deps.PlacesAPI.Register(r.Context(), req)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	if resp.AccessToken == "" {
		msg := resp.Message
		if msg == "" {
			msg = "registered, sign in to continue"
		}
		return created(msg, nil)
	}
	sess, err := api.Deps.Session.SignIn(r.Context(), resp)
	if err != nil {
		return respondWithError(err, "unable to store session", values.Error, &tc)
	}
	return created("registered", profileOf(sess))
}

// Logout clears the session and discards an open draft, which cannot be
// submitted without one.
func (api *API) Logout(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	api.Deps.Creation.Cancel()
	if err := api.Deps.Session.Clear(r.Context()); err != nil {
		return respondWithError(err, "unable to clear session", values.Error, &tc)
	}
	return success("signed out", nil)
}

func (api *API) CurrentSession(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	sess, ok := api.Deps.Session.Current()
	if !ok {
		return respondWithError(nil, "not signed in", values.NotAuthorised, &tc)
	}
	return success("session", profileOf(sess))
}

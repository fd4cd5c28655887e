package share

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Store is what the service needs from persistence. *Repo implements it
// against Postgres; tests substitute an in-memory fake.
type Store interface {
	List(ctx context.Context, page *Page) ([]Summary, error)
	Get(ctx context.Context, uid string) (*Record, error)
	Insert(ctx context.Context, uid, auth, author, name, data string) error
	Update(ctx context.Context, uid, auth, author, name, data string) (bool, error)
	Delete(ctx context.Context, uid, auth string) (bool, error)
}

// Service implements the five share operations. It is stateless: every
// call is a single store round-trip, serialized by the database.
type Service struct {
	store Store
	cache *Cache // nil disables caching
}

func NewService(store Store, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Column limits from the projects schema, checked up front so oversized
// input comes back as a client error instead of a database error.
const (
	maxAuthorLen = 25
	maxNameLen   = 100
)

type ListRequest struct {
	From  *int `json:"from"`
	Limit *int `json:"limit"`
}

type GetRequest struct {
	UID string `json:"uid"`
}

type ShareRequest struct {
	CorsToken string         `json:"cors_token"`
	Data      map[string]any `json:"data"`
}

type UnshareRequest struct {
	UID       string `json:"uid"`
	Token     string `json:"token"`
	CorsToken string `json:"cors_token"`
}

type WriteRequest struct {
	CorsToken string         `json:"cors_token"`
	Data      map[string]any `json:"data"`
}

type ShareResult struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

type UIDResult struct {
	UID string `json:"uid"`
}

// List returns listing entries: a page when both from and limit are
// present, the full set otherwise. Out-of-range values are passed
// through; the engine rejects what it cannot clamp.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Summary, error) {
	var page *Page
	if req.From != nil && req.Limit != nil {
		page = &Page{From: *req.From, Limit: *req.Limit}
	}

	if s.cache != nil {
		if items, ok := s.cache.GetList(ctx, page); ok {
			return items, nil
		}
	}

	items, err := s.store.List(ctx, page)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetList(ctx, page, items)
	}
	return items, nil
}

// Get returns the full document for one uid, or nil when no row
// matches. The document includes auth: callers must treat it as
// carrying the live capability.
func (s *Service) Get(ctx context.Context, req GetRequest) (*Record, error) {
	if req.UID == "" {
		return nil, fmt.Errorf("uid: %w", ErrInvalid)
	}

	if s.cache != nil {
		if rec, ok := s.cache.GetRecord(ctx, req.UID); ok {
			return rec, nil
		}
	}

	rec, err := s.store.Get(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	if rec != nil && s.cache != nil {
		s.cache.SetRecord(ctx, req.UID, rec)
	}
	return rec, nil
}

// Share persists a new project and mints its capability pair. The
// share token is revealed here and never again; auth stored in the row
// is token + cors_token.
func (s *Service) Share(ctx context.Context, req ShareRequest) (*ShareResult, error) {
	name, author, err := projectMeta(req.Data)
	if err != nil {
		return nil, err
	}
	if err := checkCorsToken(req.CorsToken); err != nil {
		return nil, err
	}

	uid, err := NewToken(uidLen)
	if err != nil {
		return nil, err
	}
	token, err := NewToken(shareTokenLen)
	if err != nil {
		return nil, err
	}
	auth := token + req.CorsToken

	blob, err := json.Marshal(req.Data)
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}

	if err := s.store.Insert(ctx, uid, auth, author, name, string(blob)); err != nil {
		return nil, err
	}
	s.bumpCache(ctx)

	return &ShareResult{UID: uid, Token: token}, nil
}

// Unshare deletes the row matching (uid, token+cors_token). The
// response is {uid} whether or not a row matched: callers cannot
// distinguish a wrong token from an already-deleted project.
func (s *Service) Unshare(ctx context.Context, req UnshareRequest) (*UIDResult, error) {
	if req.UID == "" || req.Token == "" {
		return nil, fmt.Errorf("uid/token: %w", ErrInvalid)
	}
	if err := checkCorsToken(req.CorsToken); err != nil {
		return nil, err
	}

	matched, err := s.store.Delete(ctx, req.UID, req.Token+req.CorsToken)
	if err != nil {
		return nil, err
	}
	if !matched {
		log.Printf("[share] delete uid=%s matched no row", req.UID)
	}
	s.bumpCache(ctx)

	return &UIDResult{UID: req.UID}, nil
}

// Write rewrites author, name and data for the project named by the
// nested shared block. Both capability fields are blanked in the stored
// blob so the row never contains its own live token.
func (s *Service) Write(ctx context.Context, req WriteRequest) (*UIDResult, error) {
	name, author, err := projectMeta(req.Data)
	if err != nil {
		return nil, err
	}
	if err := checkCorsToken(req.CorsToken); err != nil {
		return nil, err
	}

	project := req.Data["project"].(map[string]any)
	shared, ok := project["shared"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("data.project.shared: %w", ErrInvalid)
	}
	uid, _ := shared["uid"].(string)
	token, _ := shared["token"].(string)
	if uid == "" || token == "" {
		return nil, fmt.Errorf("data.project.shared.uid/token: %w", ErrInvalid)
	}
	auth := token + req.CorsToken

	shared["uid"] = ""
	shared["token"] = ""

	blob, err := json.Marshal(req.Data)
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}

	matched, err := s.store.Update(ctx, uid, auth, author, name, string(blob))
	if err != nil {
		return nil, err
	}
	if !matched {
		log.Printf("[share] update uid=%s matched no row", uid)
	}
	s.bumpCache(ctx)

	return &UIDResult{UID: uid}, nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// projectMeta pulls the required name and author out of the nested
// data.project block.
func projectMeta(data map[string]any) (name, author string, err error) {
	project, ok := data["project"].(map[string]any)
	if !ok {
		return "", "", fmt.Errorf("data.project: %w", ErrInvalid)
	}
	name, _ = project["name"].(string)
	author, _ = project["author"].(string)
	if name == "" || author == "" {
		return "", "", fmt.Errorf("data.project.name/author: %w", ErrInvalid)
	}
	if len(name) > maxNameLen || len(author) > maxAuthorLen {
		return "", "", fmt.Errorf("data.project.name/author too long: %w", ErrInvalid)
	}
	return name, author, nil
}

func checkCorsToken(tok string) error {
	if tok == "" || len(tok) > corsTokenLen {
		return fmt.Errorf("cors_token: %w", ErrInvalid)
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// AuthStatus is the response of the status endpoint.
type AuthStatus struct {
	Authenticated bool    `json:"authenticated"`
	Username      *string `json:"username"`
}

// Login opens a session; the cookie is kept in the client's jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, nil)
	if err != nil {
		return err
	}
	c.cache.Clear()
	return nil
}

// Logout revokes the session.
func (c *Client) Logout(ctx context.Context) error {
	defer c.cache.Clear()
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Status reports whether the client holds a live session.
func (c *Client) Status(ctx context.Context) (*AuthStatus, error) {
	var s AuthStatus
	if err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ChangePassword replaces the password of the logged-in user. The server
// revokes other sessions and issues a new cookie.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/password",
		map[string]string{"current_password": current, "new_password": next}, nil)
}

// Health checks the server without a session.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Companies

func (c *Client) Companies(ctx context.Context) ([]types.CompanySummary, error) {
	return get[[]types.CompanySummary](ctx, c, ResCompanies, "", "/api/productinfo/companies")
}

func (c *Client) CreateCompany(ctx context.Context, name string) (*types.Company, error) {
	return mutate[*types.Company](ctx, c, http.MethodPost, "/api/productinfo/companies", types.NameInput{Name: name}, ResCompanies)
}

func (c *Client) UpdateCompany(ctx context.Context, id int64, name string) (*types.Company, error) {
	return mutate[*types.Company](ctx, c, http.MethodPut, fmt.Sprintf("/api/productinfo/companies/%d", id), types.NameInput{Name: name}, ResCompanies)
}

func (c *Client) DeleteCompany(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/productinfo/companies/%d", id), ResCompanies)
}

// CompanyLines lists the product lines of one company.
func (c *Client) CompanyLines(ctx context.Context, companyID int64) ([]types.ProductLine, error) {
	return get[[]types.ProductLine](ctx, c, ResLines, fmt.Sprintf("company=%d", companyID),
		fmt.Sprintf("/api/productinfo/companies/%d/lines", companyID))
}

// Product lines

func (c *Client) Lines(ctx context.Context) ([]types.ProductLineSummary, error) {
	return get[[]types.ProductLineSummary](ctx, c, ResLines, "", "/api/productinfo/lines")
}

func (c *Client) CreateLine(ctx context.Context, name string, companyID int64) (*types.ProductLine, error) {
	return mutate[*types.ProductLine](ctx, c, http.MethodPost, "/api/productinfo/lines",
		types.ProductLine{Name: name, CompanyID: companyID}, ResLines)
}

func (c *Client) UpdateLine(ctx context.Context, id int64, in types.ProductLineUpdate) (*types.ProductLine, error) {
	return mutate[*types.ProductLine](ctx, c, http.MethodPut, fmt.Sprintf("/api/productinfo/lines/%d", id), in, ResLines)
}

func (c *Client) DeleteLine(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/productinfo/lines/%d", id), ResLines)
}

// LineSets lists the product sets of one line.
func (c *Client) LineSets(ctx context.Context, lineID int64) ([]types.ProductSetSummary, error) {
	return get[[]types.ProductSetSummary](ctx, c, ResSets, fmt.Sprintf("line=%d", lineID),
		fmt.Sprintf("/api/productinfo/lines/%d/sets", lineID))
}

// Product sets

func (c *Client) Sets(ctx context.Context) ([]types.ProductSetSummary, error) {
	return get[[]types.ProductSetSummary](ctx, c, ResSets, "", "/api/productinfo/sets")
}

func (c *Client) CreateSet(ctx context.Context, name string, lineID int64) (*types.ProductSet, error) {
	return mutate[*types.ProductSet](ctx, c, http.MethodPost, "/api/productinfo/sets",
		types.ProductSet{Name: name, ProductLineID: lineID}, ResSets)
}

func (c *Client) UpdateSet(ctx context.Context, id int64, in types.ProductSetUpdate) (*types.ProductSet, error) {
	return mutate[*types.ProductSet](ctx, c, http.MethodPut, fmt.Sprintf("/api/productinfo/sets/%d", id), in, ResSets)
}

func (c *Client) DeleteSet(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/productinfo/sets/%d", id), ResSets)
}

// Classification

func (c *Client) Types(ctx context.Context) ([]types.MiniTypeSummary, error) {
	return get[[]types.MiniTypeSummary](ctx, c, ResTypes, "", "/api/classification/types")
}

func (c *Client) CreateType(ctx context.Context, name string) (*types.MiniType, error) {
	return mutate[*types.MiniType](ctx, c, http.MethodPost, "/api/classification/types", types.NameInput{Name: name}, ResTypes)
}

func (c *Client) UpdateType(ctx context.Context, id int64, name string) (*types.MiniType, error) {
	return mutate[*types.MiniType](ctx, c, http.MethodPut, fmt.Sprintf("/api/classification/types/%d", id), types.NameInput{Name: name}, ResTypes)
}

func (c *Client) DeleteType(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/classification/types/%d", id), ResTypes)
}

// TypeCategories lists the categories linked to one type.
func (c *Client) TypeCategories(ctx context.Context, typeID int64) ([]types.MiniCategory, error) {
	return get[[]types.MiniCategory](ctx, c, ResCategories, fmt.Sprintf("type=%d", typeID),
		fmt.Sprintf("/api/classification/types/%d/categories", typeID))
}

func (c *Client) LinkCategory(ctx context.Context, typeID, categoryID int64) error {
	_, err := mutate[map[string]any](ctx, c, http.MethodPost,
		fmt.Sprintf("/api/classification/types/%d/categories/%d", typeID, categoryID), nil, ResTypes, ResCategories)
	return err
}

func (c *Client) UnlinkCategory(ctx context.Context, typeID, categoryID int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/classification/types/%d/categories/%d", typeID, categoryID), ResTypes, ResCategories)
}

func (c *Client) Categories(ctx context.Context) ([]types.CategorySummary, error) {
	return get[[]types.CategorySummary](ctx, c, ResCategories, "", "/api/classification/categories")
}

func (c *Client) CreateCategory(ctx context.Context, in types.CategoryInput) (*types.CategorySummary, error) {
	return mutate[*types.CategorySummary](ctx, c, http.MethodPost, "/api/classification/categories", in, ResCategories)
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, name string) (*types.CategorySummary, error) {
	return mutate[*types.CategorySummary](ctx, c, http.MethodPut, fmt.Sprintf("/api/classification/categories/%d", id), types.NameInput{Name: name}, ResCategories)
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/classification/categories/%d", id), ResCategories)
}

// SetCategoryTypes replaces the types a category is assigned to.
func (c *Client) SetCategoryTypes(ctx context.Context, id int64, typeIDs []int64) (*types.CategorySummary, error) {
	return mutate[*types.CategorySummary](ctx, c, http.MethodPut, fmt.Sprintf("/api/classification/categories/%d/types", id),
		map[string][]int64{"type_ids": typeIDs}, ResCategories)
}

// Tags

func (c *Client) Tags(ctx context.Context) ([]types.TagSummary, error) {
	return get[[]types.TagSummary](ctx, c, ResTags, "", "/api/tags")
}

func (c *Client) CreateTag(ctx context.Context, name string) (*types.Tag, error) {
	return mutate[*types.Tag](ctx, c, http.MethodPost, "/api/tags", types.NameInput{Name: name}, ResTags)
}

func (c *Client) UpdateTag(ctx context.Context, id int64, name string) (*types.Tag, error) {
	return mutate[*types.Tag](ctx, c, http.MethodPut, fmt.Sprintf("/api/tags/%d", id), types.NameInput{Name: name}, ResTags)
}

func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/tags/%d", id), ResTags)
}

// Minis

func (c *Client) Minis(ctx context.Context) ([]types.MiniDetail, error) {
	return get[[]types.MiniDetail](ctx, c, ResMinis, "", "/api/minis")
}

func (c *Client) Mini(ctx context.Context, id int64) (*types.MiniDetail, error) {
	return get[*types.MiniDetail](ctx, c, ResMinis, fmt.Sprintf("id=%d", id), fmt.Sprintf("/api/minis/%d", id))
}

func (c *Client) CreateMini(ctx context.Context, in types.MiniInput) (*types.MiniDetail, error) {
	return mutate[*types.MiniDetail](ctx, c, http.MethodPost, "/api/minis", in, ResMinis)
}

func (c *Client) UpdateMini(ctx context.Context, id int64, in types.MiniUpdate) (*types.MiniDetail, error) {
	return mutate[*types.MiniDetail](ctx, c, http.MethodPut, fmt.Sprintf("/api/minis/%d", id), in, ResMinis)
}

func (c *Client) DeleteMini(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/minis/%d", id), ResMinis)
}

// SetMiniTags replaces the tags of a mini atomically.
func (c *Client) SetMiniTags(ctx context.Context, id int64, tagIDs []int64) (*types.MiniDetail, error) {
	return mutate[*types.MiniDetail](ctx, c, http.MethodPut, fmt.Sprintf("/api/minis/%d/tags", id),
		map[string][]int64{"tag_ids": tagIDs}, ResMinis)
}

// SetMiniTypes replaces the type assignments of a mini atomically.
func (c *Client) SetMiniTypes(ctx context.Context, id int64, links []types.MiniTypeLink) (*types.MiniDetail, error) {
	return mutate[*types.MiniDetail](ctx, c, http.MethodPut, fmt.Sprintf("/api/minis/%d/types", id),
		map[string][]types.MiniTypeLink{"types": links}, ResMinis)
}

// UploadImage sends an image file for a mini.
func (c *Client) UploadImage(ctx context.Context, id int64, filename string, r io.Reader) (*types.MiniDetail, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	var m types.MiniDetail
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/minis/%d/image", id), mw.FormDataContentType(), &buf, &m); err != nil {
		return nil, err
	}
	c.cache.Invalidate(ResMinis)
	return &m, nil
}

func (c *Client) DeleteImage(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/minis/%d/image", id), ResMinis)
}

// Reference tables

func (c *Client) BaseSizes(ctx context.Context) ([]types.BaseSize, error) {
	return get[[]types.BaseSize](ctx, c, ResBaseSizes, "", "/api/reference/base-sizes")
}

func (c *Client) CreateBaseSize(ctx context.Context, in types.BaseSize) (*types.BaseSize, error) {
	return mutate[*types.BaseSize](ctx, c, http.MethodPost, "/api/reference/base-sizes", in, ResBaseSizes)
}

func (c *Client) UpdateBaseSize(ctx context.Context, id int64, in types.BaseSize) (*types.BaseSize, error) {
	return mutate[*types.BaseSize](ctx, c, http.MethodPut, fmt.Sprintf("/api/reference/base-sizes/%d", id), in, ResBaseSizes)
}

func (c *Client) DeleteBaseSize(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/reference/base-sizes/%d", id), ResBaseSizes)
}

func (c *Client) PaintedBy(ctx context.Context) ([]types.PaintedBy, error) {
	return get[[]types.PaintedBy](ctx, c, ResPaintedBy, "", "/api/reference/painted-by")
}

func (c *Client) CreatePaintedBy(ctx context.Context, name string) (*types.PaintedBy, error) {
	return mutate[*types.PaintedBy](ctx, c, http.MethodPost, "/api/reference/painted-by", types.NameInput{Name: name}, ResPaintedBy)
}

func (c *Client) UpdatePaintedBy(ctx context.Context, id int64, name string) (*types.PaintedBy, error) {
	return mutate[*types.PaintedBy](ctx, c, http.MethodPut, fmt.Sprintf("/api/reference/painted-by/%d", id), types.NameInput{Name: name}, ResPaintedBy)
}

func (c *Client) DeletePaintedBy(ctx context.Context, id int64) error {
	return c.remove(ctx, fmt.Sprintf("/api/reference/painted-by/%d", id), ResPaintedBy)
}

// Settings and dashboard

func (c *Client) Settings(ctx context.Context) (map[string]string, error) {
	return get[map[string]string](ctx, c, ResSettings, "", "/api/settings")
}

func (c *Client) SetSetting(ctx context.Context, key, value string) error {
	_, err := mutate[*types.Preference](ctx, c, http.MethodPut, "/api/settings/"+url.PathEscape(key),
		map[string]string{"value": value}, ResSettings)
	return err
}

func (c *Client) Dashboard(ctx context.Context) (*types.Dashboard, error) {
	return get[*types.Dashboard](ctx, c, ResDashboard, "", "/api/dashboard")
}

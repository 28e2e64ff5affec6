package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"family_tree/registry/services"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		switch res.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, w.Body.String())
		case http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", ErrInvalidRequest, w.Body.String())
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) signup(username, email, password string) (loginInfo, error) {
	body := map[string]string{
		"email": email, "username": username, "password": password,
	}

	err := c.Post("/user/signup").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Get("/user/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["access_token"]
	c.userId = res["user_id"]

	return nil
}

func (c *client) userInfo() (services.UserInfo, error) {
	var info services.UserInfo
	err := c.Get("/user/info").Do(&info)
	return info, err
}

func (c *client) listUsers() ([]services.UserInfo, error) {
	var infos []services.UserInfo
	err := c.Get("/user/list").Do(&infos)
	return infos, err
}

func (c *client) deleteUser(userId string) error {
	return c.Delete(fmt.Sprintf("/user/%v", userId)).Do(nil)
}

func (c *client) createTree(name, description string) (uuid.UUID, error) {
	body := map[string]string{"name": name, "description": description}

	var res map[string]uuid.UUID
	err := c.Post("/tree/create").Json(body).Do(&res)
	if err != nil {
		return uuid.Nil, err
	}

	return res["tree_id"], nil
}

func (c *client) listTrees() ([]services.TreeInfo, error) {
	var infos []services.TreeInfo
	err := c.Get("/tree/list").Do(&infos)
	return infos, err
}

func (c *client) getTree(treeId uuid.UUID) (services.TreeDetail, error) {
	var detail services.TreeDetail
	err := c.Get(fmt.Sprintf("/tree/%v", treeId)).Do(&detail)
	return detail, err
}

func (c *client) updateTree(treeId uuid.UUID, name, description string) error {
	body := map[string]string{"name": name, "description": description}
	return c.Post(fmt.Sprintf("/tree/%v", treeId)).Json(body).Do(nil)
}

func (c *client) deleteTree(treeId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/tree/%v", treeId)).Do(nil)
}

func (c *client) listMembers(treeId uuid.UUID) ([]services.MemberInfo, error) {
	var infos []services.MemberInfo
	err := c.Get(fmt.Sprintf("/tree/%v/members", treeId)).Do(&infos)
	return infos, err
}

func (c *client) createMember(treeId uuid.UUID, attrs map[string]interface{}) (uuid.UUID, error) {
	body := map[string]interface{}{"tree_id": treeId}
	for k, v := range attrs {
		body[k] = v
	}

	var res map[string]uuid.UUID
	err := c.Post("/member/create").Json(body).Do(&res)
	if err != nil {
		return uuid.Nil, err
	}

	return res["member_id"], nil
}

func (c *client) getMember(memberId uuid.UUID) (services.MemberInfo, error) {
	var info services.MemberInfo
	err := c.Get(fmt.Sprintf("/member/%v", memberId)).Do(&info)
	return info, err
}

func (c *client) updateMember(memberId uuid.UUID, attrs map[string]interface{}) error {
	return c.Post(fmt.Sprintf("/member/%v", memberId)).Json(attrs).Do(nil)
}

func (c *client) deleteMember(memberId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/member/%v", memberId)).Do(nil)
}

func (c *client) addRelationship(parentId, childId uuid.UUID, relType string) (uuid.UUID, error) {
	body := map[string]interface{}{"parent_id": parentId, "child_id": childId, "type": relType}

	var res map[string]uuid.UUID
	err := c.Post("/member/relationship").Json(body).Do(&res)
	if err != nil {
		return uuid.Nil, err
	}

	return res["relationship_id"], nil
}

func (c *client) addPartnership(partner1Id, partner2Id uuid.UUID, partnershipType string) (uuid.UUID, error) {
	body := map[string]interface{}{"partner1_id": partner1Id, "partner2_id": partner2Id, "type": partnershipType}

	var res map[string]uuid.UUID
	err := c.Post("/member/partnership").Json(body).Do(&res)
	if err != nil {
		return uuid.Nil, err
	}

	return res["partnership_id"], nil
}

func (c *client) addEvent(memberId uuid.UUID, attrs map[string]interface{}) (uuid.UUID, error) {
	var res map[string]uuid.UUID
	err := c.Post(fmt.Sprintf("/member/%v/events", memberId)).Json(attrs).Do(&res)
	if err != nil {
		return uuid.Nil, err
	}

	return res["event_id"], nil
}

func (c *client) uploadPhoto(memberId uuid.UUID, photo []byte) error {
	return c.Post(fmt.Sprintf("/member/%v/photo", memberId)).Body(bytes.NewReader(photo)).Do(nil)
}

func (c *client) downloadPhoto(memberId uuid.UUID) ([]byte, error) {
	req := httptest.NewRequest("GET", fmt.Sprintf("/member/%v/photo", memberId), nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", c.authToken))

	w := httptest.NewRecorder()
	c.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, w.Body.String())
		}
		return nil, fmt.Errorf("photo download returned status %d", res.StatusCode)
	}

	return io.ReadAll(res.Body)
}

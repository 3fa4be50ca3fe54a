package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
)

type userRecord struct {
	models.User
	passwordHash []byte
	seq          int
	revoked      map[string]bool
}

type authResponse struct {
	models.User
	Token string `json:"token,omitempty"`
}

// AddUser registers a user directly and returns it.
func (b *Backend) AddUser(name, email, password string) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.addUserLocked(name, email, password)
	if err != nil {
		panic(err)
	}
	return u.User
}

func (b *Backend) addUserLocked(name, email, password string) (*userRecord, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &userRecord{
		User:         models.User{ID: newID(), Name: name, Email: strings.ToLower(email)},
		passwordHash: hash,
		seq:          b.nextSeq(),
		revoked:      make(map[string]bool),
	}
	b.users[u.ID] = u
	return u, nil
}

func (b *Backend) userByEmailLocked(email string) *userRecord {
	email = strings.ToLower(email)
	for _, u := range b.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (b *Backend) issueSession(w http.ResponseWriter, status int, u *userRecord) {
	token, err := b.generateToken(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign token")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: token, Path: "/", HttpOnly: true})

	resp := authResponse{User: u.User}
	if !b.opts.CookieOnly {
		resp.Token = token
	}
	writeJSON(w, status, resp)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var data models.LoginData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	u := b.userByEmailLocked(data.Email)
	b.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(data.Password)) != nil {
		logging.Logger.Warnf("Event ID: FAKEAPI_LOGIN_FAILED, Description: invalid credentials for %s", data.Email)
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	b.issueSession(w, http.StatusOK, u)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var data models.RegisterData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if data.Name == "" || data.Email == "" || data.Password == "" {
		writeError(w, http.StatusBadRequest, "Please fill in all fields")
		return
	}

	b.mu.Lock()
	if b.userByEmailLocked(data.Email) != nil {
		b.mu.Unlock()
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	u, err := b.addUserLocked(data.Name, data.Email, data.Password)
	b.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	b.issueSession(w, http.StatusCreated, u)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	s := sessionOf(r)
	b.mu.Lock()
	if u, ok := b.users[s.userID]; ok {
		u.revoked[s.tokenID] = true
	}
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	u, ok := b.users[sessionOf(r).userID]
	var out models.User
	if ok {
		out = u.User
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	records := make([]*userRecord, 0, len(b.users))
	for _, u := range b.users {
		records = append(records, u)
	}
	b.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	users := make([]models.User, 0, len(records))
	for _, u := range records {
		users = append(users, u.User)
	}
	writeJSON(w, http.StatusOK, users)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var data models.ProfileData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[sessionOf(r).userID]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if other := b.userByEmailLocked(data.Email); other != nil && other.ID != u.ID {
		writeError(w, http.StatusBadRequest, "Email already in use")
		return
	}
	if data.Name != "" {
		u.Name = data.Name
	}
	if data.Email != "" {
		u.Email = strings.ToLower(data.Email)
	}
	writeJSON(w, http.StatusOK, u.User)
}

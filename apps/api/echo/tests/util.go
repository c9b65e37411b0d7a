package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/FARHATREKAYA/quran-app/apps/api/echo"
	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/bookmark"
	"github.com/FARHATREKAYA/quran-app/core/interaction"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
	emailsvc "github.com/FARHATREKAYA/quran-app/services/email"
	dummydb "github.com/FARHATREKAYA/quran-app/storage/database/dummy"
	testutil "github.com/FARHATREKAYA/quran-app/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server  *echoapi.Server
	conf    *core.Config
	usrRepo user.Repository
	mail    *emailsvc.ServiceMock
}

// setup starts an API backed by the in-memory repositories and a 7+5+8 verses corpus.
// `configure` may adjust the configuration before the services are built.
func setup(t *testing.T, configure ...func(*core.Config)) *testApp {
	t.Helper()

	conf := testutil.Config()
	for _, fn := range configure {
		fn(conf)
	}
	logger := testutil.Logger(conf)
	core.ParseEmailTemplates(conf, logger)
	validate, translator := testutil.ValidatorWithTranslator()

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)

	// set up services
	mail := emailsvc.NewServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, mail, conf)
	quranSvc := quran.NewService(dummydb.NewQuranRepository(db), conf)
	testutil.SeedCorpus(t, quranSvc, 7, 5, 8)

	// set up server
	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		QuranSvc:       quranSvc,
		KhatmSvc:       khatm.NewService(dummydb.NewKhatmRepository(db), quranSvc, mail, conf),
		BookmarkSvc:    bookmark.NewService(dummydb.NewBookmarkRepository(db), quranSvc),
		InteractionSvc: interaction.NewService(dummydb.NewInteractionRepository(db), quranSvc, usrSvc),
	})

	return &testApp{server: server, conf: conf, usrRepo: usrRepo, mail: mail}
}

func (app *testApp) createUser(t *testing.T, uname string, opts ...testutil.UserOpts) user.User {
	return testutil.CreateUser(t, app.usrRepo, uname, opts...)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// do runs the request and returns the recorded response.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

// run executes a table of httpTest against the app.
func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(method, tt.path, tt.token, tt.body)
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList() failed: %v", err)
	}
	return data
}

// decode unmarshalls the response body into `v`.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData compares the body only when the test expects one.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

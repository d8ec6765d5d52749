package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/internal/intake/models"
	"formgate/internal/intake/service"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/testutil"
)

type fakeService struct {
	showTemplate  *models.Template
	showSubmitter *models.Submitter
	showErr       error

	updateOutcome service.Outcome
	updateErr     error
	updateParams  service.UpdateParams

	completedSubmitter *models.Submitter
	completedErr       error
}

func (f *fakeService) Show(_ context.Context, _ string) (*models.Template, *models.Submitter, error) {
	return f.showTemplate, f.showSubmitter, f.showErr
}

func (f *fakeService) Update(_ context.Context, _ string, params service.UpdateParams) (service.Outcome, error) {
	f.updateParams = params
	return f.updateOutcome, f.updateErr
}

func (f *fakeService) Completed(_ context.Context, _, _ string) (*models.Submitter, error) {
	return f.completedSubmitter, f.completedErr
}

func newRouter(svc *fakeService) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	return r
}

func TestHandleShow(t *testing.T) {
	t.Run("renders the template and fresh submitter", func(t *testing.T) {
		svc := &fakeService{
			showTemplate:  &models.Template{ID: 1, Slug: "nda", Name: "NDA"},
			showSubmitter: &models.Submitter{UUID: "slot-1"},
		}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodGet, "/d/nda", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[showResponse](t, rr)
		assert.Equal(t, "nda", resp.Template.Slug)
		assert.Equal(t, "slot-1", resp.Submitter.UUID)
	})

	t.Run("unknown template is 404", func(t *testing.T) {
		svc := &fakeService{showErr: dErrors.New(dErrors.CodeNotFound, "template not found")}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodGet, "/d/missing", nil))

		require.Equal(t, http.StatusNotFound, rr.Code)
		resp := testutil.UnmarshalResponse[renderResponse](t, rr)
		assert.Equal(t, "template not found", resp.Error)
	})

	t.Run("internal failures hide their detail", func(t *testing.T) {
		svc := &fakeService{showErr: dErrors.New(dErrors.CodeInternal, "db connection refused")}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodGet, "/d/nda", nil))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := testutil.UnmarshalResponse[renderResponse](t, rr)
		assert.Equal(t, "internal error", resp.Error)
	})
}

func TestHandleUpdate(t *testing.T) {
	body := map[string]any{
		"submitter": map[string]any{
			"email":  "ana@example.com",
			"values": map[string]any{"field-1": "yes"},
		},
	}

	t.Run("redirects to the submit form on success", func(t *testing.T) {
		svc := &fakeService{updateOutcome: service.Outcome{
			Kind:          service.OutcomeRedirectSubmit,
			TemplateSlug:  "nda",
			SubmitterSlug: "sub-123",
		}}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/d/nda", body))

		require.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/f/sub-123", rr.Header().Get("Location"))
		assert.Equal(t, "ana@example.com", svc.updateParams.Email)
		assert.Equal(t, "yes", svc.updateParams.Values["field-1"])
	})

	t.Run("redirects archived templates back to start", func(t *testing.T) {
		svc := &fakeService{updateOutcome: service.Outcome{
			Kind:         service.OutcomeRedirectStart,
			TemplateSlug: "nda",
		}}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/d/nda", body))

		require.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/d/nda", rr.Header().Get("Location"))
	})

	t.Run("redirects completed submitters with the email escaped", func(t *testing.T) {
		svc := &fakeService{updateOutcome: service.Outcome{
			Kind:         service.OutcomeRedirectCompleted,
			TemplateSlug: "nda",
			Email:        "ana+tag@example.com",
		}}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/d/nda", body))

		require.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/d/nda/completed?email=ana%2Btag%40example.com", rr.Header().Get("Location"))
	})

	t.Run("ambiguous slot lookup renders 422", func(t *testing.T) {
		svc := &fakeService{updateOutcome: service.Outcome{
			Kind:    service.OutcomeRenderNotFound,
			Message: "Not found",
		}}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/d/nda", body))

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := testutil.UnmarshalResponse[renderResponse](t, rr)
		assert.Equal(t, "Not found", resp.Error)
	})

	t.Run("validation failures carry field errors", func(t *testing.T) {
		svc := &fakeService{updateOutcome: service.Outcome{
			Kind:        service.OutcomeRenderInvalid,
			FieldErrors: map[string]string{"email": "is not a valid email address"},
		}}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/d/nda", body))

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := testutil.UnmarshalResponse[renderResponse](t, rr)
		assert.Equal(t, "is not a valid email address", resp.Fields["email"])
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		svc := &fakeService{}

		req := testutil.NewJSONRequest(t, http.MethodPost, "/d/nda", nil)
		rr := testutil.DoRequest(newRouter(svc), req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("resubmit token falls back to the query string", func(t *testing.T) {
		svc := &fakeService{updateOutcome: service.Outcome{
			Kind:          service.OutcomeRedirectSubmit,
			SubmitterSlug: "sub-123",
		}}

		req := testutil.NewJSONRequest(t, http.MethodPost, "/d/nda?resubmit=prior-slug", body)
		testutil.DoRequest(newRouter(svc), req)

		assert.Equal(t, "prior-slug", svc.updateParams.ResubmitSlug)
	})
}

func TestHandleCompleted(t *testing.T) {
	t.Run("renders the completed submitter", func(t *testing.T) {
		svc := &fakeService{completedSubmitter: &models.Submitter{Email: "done@example.com"}}

		rr := testutil.DoRequest(newRouter(svc),
			testutil.NewJSONRequest(t, http.MethodGet, "/d/nda/completed?email=done@example.com", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[completedResponse](t, rr)
		assert.Equal(t, "done@example.com", resp.Submitter.Email)
	})

	t.Run("unknown email is 404", func(t *testing.T) {
		svc := &fakeService{completedErr: dErrors.New(dErrors.CodeNotFound, "submitter not found")}

		rr := testutil.DoRequest(newRouter(svc),
			testutil.NewJSONRequest(t, http.MethodGet, "/d/nda/completed?email=x@example.com", nil))

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

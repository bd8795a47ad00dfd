package jamabandi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landrecords-in/jamabandi/internal/models"
	apperrors "github.com/landrecords-in/jamabandi/pkg/errors"
)

func testRecordKey() models.RecordKey {
	return models.RecordKey{
		DistrictName: "नुह",
		TehsilName:   "नगीना",
		VillageName:  "F. pur dehar",
		KhasraNo:     "1//17",
	}
}

// fakePortal emulates the NakalRecord WebForm: every postback must echo the
// tokens served by the previous response, and each step unlocks the next
// dropdown in the cascade.
type fakePortal struct {
	t *testing.T

	mu        sync.Mutex
	viewstate int
	targets   []string
	gridArg   string

	missingTokens bool
	emptyGrid     bool
}

func (p *fakePortal) currentViewstate() string {
	return fmt.Sprintf("vs-%d", p.viewstate)
}

func (p *fakePortal) page(body string) string {
	if p.missingTokens {
		return "<html><body><form>" + body + "</form></body></html>"
	}
	p.viewstate++
	return fmt.Sprintf(`<html><body><form>
<input type="hidden" name="__VIEWSTATE" value=%q/>
<input type="hidden" name="__VIEWSTATEGENERATOR" value="C2EE9ABB"/>
<input type="hidden" name="__EVENTVALIDATION" value="ev-%d"/>
<input type="hidden" name="__EVENTARGUMENT" value=""/>
%s
</form></body></html>`, p.currentViewstate(), p.viewstate, body)
}

func dropdown(label string, options ...[2]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div><label>%s</label><select>`, label)
	b.WriteString(`<option selected="selected" value="-1">--Select--</option>`)
	for _, opt := range options {
		fmt.Fprintf(&b, `<option value=%q>%s</option>`, opt[1], opt[0])
	}
	b.WriteString(`</select></div>`)
	return b.String()
}

func (p *fakePortal) grid() string {
	if p.emptyGrid {
		return `<table id="ctl00_ContentPlaceHolder1_GridView1"><tr><th>Select</th></tr></table>`
	}
	return `<table id="ctl00_ContentPlaceHolder1_GridView1">
<tr><th>Select</th><th>Khewat</th><th>Khatoni</th></tr>
<tr><td><a href="javascript:__doPostBack('ctl00$ContentPlaceHolder1$GridView1','Select$0')">Select</a></td><td>3</td><td>9</td></tr>
<tr><td><a href="javascript:__doPostBack('ctl00$ContentPlaceHolder1$GridView1','Select$1')">Select</a></td><td>4</td><td>12</td></tr>
</table>`
}

func (p *fakePortal) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/land records/NakalRecord":
			fmt.Fprint(w, p.page(""))

		case r.Method == http.MethodPost && r.URL.Path == "/land records/NakalRecord":
			require.NoError(p.t, r.ParseForm())
			assert.Equal(p.t, p.currentViewstate(), r.PostFormValue("__VIEWSTATE"),
				"postback must echo the latest viewstate")
			assert.Equal(p.t, "RdobtnKhasra", r.PostFormValue(controlMode))

			target := r.PostFormValue("__EVENTTARGET")
			p.targets = append(p.targets, target)

			switch target {
			case controlKhasra:
				fmt.Fprint(w, p.page(dropdown("Select District",
					[2]string{"अम्बाला", "01"}, [2]string{"नुह", "14"})))
			case controlDistrict:
				assert.Equal(p.t, "14", r.PostFormValue(controlDistrict))
				fmt.Fprint(w, p.page(dropdown("Select Tehsil/ Sub-Tehsil",
					[2]string{"नगीना", "068"})))
			case controlTehsil:
				fmt.Fprint(w, p.page(dropdown("Select Village",
					[2]string{"F. pur dehar", "02114"})))
			case controlVillage:
				fmt.Fprint(w, p.page(dropdown("Jamabandi Year",
					[2]string{"2022-2023", "2022-2023"}, [2]string{"2017-2018", "2017-2018"})))
			case controlYear:
				assert.Equal(p.t, "2022-2023", r.PostFormValue(controlYear))
				fmt.Fprint(w, p.page(dropdown("Khasra",
					[2]string{"1//17", "6"}, [2]string{"2//4", "7"})))
			case controlKhasraNo:
				fmt.Fprint(w, p.page(p.grid()))
			case controlGrid:
				p.gridArg = r.PostFormValue("__EVENTARGUMENT")
				fmt.Fprint(w, p.page(""))
			default:
				p.t.Errorf("unexpected event target %q", target)
				w.WriteHeader(http.StatusBadRequest)
			}

		case r.Method == http.MethodGet && r.URL.Path == "/land records/Nakal_khewat":
			fmt.Fprint(w, `<html><body>
<span id="lblvill">F. pur dehar</span>
<span id="lblhad">50</span>
<span id="lblteh">नगीना</span>
<span id="lbldis">नुह</span>
<span id="lblyer">2022-2023</span>
</body></html>`)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, portal *fakePortal, htmlDir string) *Client {
	t.Helper()

	srv := httptest.NewServer(portal.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, HTMLDir: htmlDir})
	require.NoError(t, err)
	return client
}

func TestClientFetchWalksCascade(t *testing.T) {
	portal := &fakePortal{t: t}
	client := newTestClient(t, portal, "")

	record, err := client.Fetch(context.Background(), testRecordKey())
	require.NoError(t, err)

	// Key fields echo the caller's input verbatim.
	require.Equal(t, testRecordKey(), record.Key())

	require.Equal(t, "14", record.DistrictCode)
	require.Equal(t, "068", record.TehsilCode)
	require.Equal(t, "02114", record.VillageCode)
	require.Equal(t, "2022-2023", record.JamabandiYear)
	require.Equal(t, "6", record.KhasraCode)
	require.Equal(t, "3", record.KhewatNo)
	require.Equal(t, "9", record.KhatoniNo)
	require.Equal(t, "F. pur dehar", record.NakalVillage)
	require.Equal(t, "50", record.NakalHadbast)
	require.Equal(t, "नगीना", record.NakalTehsil)
	require.Equal(t, "नुह", record.NakalDistrict)
	require.Equal(t, "2022-2023", record.NakalYear)

	require.Equal(t, []string{
		controlKhasra, controlDistrict, controlTehsil,
		controlVillage, controlYear, controlKhasraNo, controlGrid,
	}, portal.targets)
	require.Equal(t, "Select$0", portal.gridArg, "first grid row must be selected")
}

func TestClientFetchUnknownDistrict(t *testing.T) {
	portal := &fakePortal{t: t}
	client := newTestClient(t, portal, "")

	key := testRecordKey()
	key.DistrictName = "गुड़गांव"

	_, err := client.Fetch(context.Background(), key)
	require.Error(t, err)
	require.True(t, apperrors.IsFetch(err))
	require.Contains(t, err.Error(), "district")
}

func TestClientFetchMissingFormTokens(t *testing.T) {
	portal := &fakePortal{t: t, missingTokens: true}
	client := newTestClient(t, portal, "")

	_, err := client.Fetch(context.Background(), testRecordKey())
	require.Error(t, err)
	require.True(t, apperrors.IsFetch(err))
	require.ErrorIs(t, err, apperrors.ErrPortalChanged)
}

func TestClientFetchEmptyNakalGrid(t *testing.T) {
	portal := &fakePortal{t: t, emptyGrid: true}
	client := newTestClient(t, portal, "")

	_, err := client.Fetch(context.Background(), testRecordKey())
	require.Error(t, err)
	require.True(t, apperrors.IsFetch(err))
}

func TestClientFetchDumpsNakalHTML(t *testing.T) {
	portal := &fakePortal{t: t}
	dir := t.TempDir()
	client := newTestClient(t, portal, dir)

	_, err := client.Fetch(context.Background(), testRecordKey())
	require.NoError(t, err)

	// Slashes in the khasra number are not valid in file names.
	path := filepath.Join(dir, "नुह_नगीना_F. pur dehar_1--17.html")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "lblvill")
}

func TestClientFetchPortalUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), testRecordKey())
	require.Error(t, err)
	require.True(t, apperrors.IsFetch(err))
	require.ErrorIs(t, err, apperrors.ErrPortalUnreachable)
}

func TestClientFetchRequiresFullKey(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), models.RecordKey{DistrictName: "नुह"})
	require.Error(t, err)
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "://not-a-url"})
	require.Error(t, err)
}

package jamabandi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/landrecords-in/jamabandi/internal/models"
	apperrors "github.com/landrecords-in/jamabandi/pkg/errors"
	"github.com/landrecords-in/jamabandi/pkg/logger"
)

const (
	defaultBaseURL   = "https://jamabandi.nic.in"
	defaultUserAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	defaultTimeout   = 40 * time.Second

	// ASP.NET control identifiers on the NakalRecord page.
	fieldPrefix     = "ctl00$ContentPlaceHolder1$"
	controlMode     = fieldPrefix + "a"
	controlKhasra   = fieldPrefix + "RdobtnKhasra"
	controlDistrict = fieldPrefix + "ddldname"
	controlTehsil   = fieldPrefix + "ddltname"
	controlVillage  = fieldPrefix + "ddlvname"
	controlYear     = fieldPrefix + "ddlPeriod"
	controlKhasraNo = fieldPrefix + "ddlkhasra"
	controlGrid     = fieldPrefix + "GridView1"
)

// Config carries portal client options.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	HTMLDir   string // when set, the raw nakal page is written here
}

// Client scrapes the jamabandi.nic.in NakalRecord page. The page is a
// classic ASP.NET WebForm: every dropdown selection is a full postback that
// must echo the __VIEWSTATE and __EVENTVALIDATION tokens of the previous
// response, so one Fetch walks the whole cascade on a single cookie session.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	htmlDir    string
	log        *zap.Logger
}

// NewClient builds a portal client from the configuration, applying the
// portal defaults for anything left unset.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("jamabandi: invalid base url: %w", err)
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("jamabandi: cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		baseURL:    parsed,
		userAgent:  userAgent,
		htmlDir:    strings.TrimSpace(cfg.HTMLDir),
		log:        logger.WithModule("jamabandi"),
	}, nil
}

// Fetch resolves a land record from the portal. The call is stateless from
// the caller's point of view: a fresh form session is opened, the cascade
// district → tehsil → village → year → khasra → nakal is walked once, and
// the nakal document is parsed into a record. No retries are attempted.
func (c *Client) Fetch(ctx context.Context, key models.RecordKey) (*models.LandRecord, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	state, err := c.loadForm(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Debug("form session opened", zap.String("district", key.DistrictName))

	doc, err := c.postStep(ctx, state, controlKhasra, "", map[string]string{
		controlDistrict: "-1",
	})
	if err != nil {
		return nil, err
	}
	districts := selectOptions(doc, "Select District")
	districtID, err := resolve(districts, key.DistrictName, "district")
	if err != nil {
		return nil, err
	}

	doc, err = c.postStep(ctx, state, controlDistrict, state.eventArgument, map[string]string{
		controlDistrict: districtID,
	})
	if err != nil {
		return nil, err
	}
	tehsils := selectOptions(doc, "Select Tehsil/ Sub-Tehsil")
	tehsilID, err := resolve(tehsils, key.TehsilName, "tehsil")
	if err != nil {
		return nil, err
	}

	doc, err = c.postStep(ctx, state, controlTehsil, state.eventArgument, map[string]string{
		controlDistrict: districtID,
		controlTehsil:   tehsilID,
	})
	if err != nil {
		return nil, err
	}
	villages := selectOptions(doc, "Select Village")
	villageID, err := resolve(villages, key.VillageName, "village")
	if err != nil {
		return nil, err
	}

	doc, err = c.postStep(ctx, state, controlVillage, state.eventArgument, map[string]string{
		controlDistrict: districtID,
		controlTehsil:   tehsilID,
		controlVillage:  villageID,
	})
	if err != nil {
		return nil, err
	}
	years := optionValues(doc, "Jamabandi Year")
	if len(years) == 0 {
		return nil, apperrors.ErrPortalChanged.WithInternal(errors.New("no jamabandi years listed"))
	}
	year := years[0] // most recent jamabandi

	doc, err = c.postStep(ctx, state, controlYear, state.eventArgument, map[string]string{
		controlDistrict: districtID,
		controlTehsil:   tehsilID,
		controlVillage:  villageID,
		controlYear:     year,
	})
	if err != nil {
		return nil, err
	}
	khasras := selectOptions(doc, "Khasra")
	khasraID, err := resolve(khasras, key.KhasraNo, "khasra number")
	if err != nil {
		return nil, err
	}

	doc, err = c.postStep(ctx, state, controlKhasraNo, state.eventArgument, map[string]string{
		controlDistrict: districtID,
		controlTehsil:   tehsilID,
		controlVillage:  villageID,
		controlYear:     year,
		controlKhasraNo: khasraID,
	})
	if err != nil {
		return nil, err
	}
	nakal, err := nakalGridRow(doc)
	if err != nil {
		return nil, err
	}

	if _, err = c.postStep(ctx, state, controlGrid, nakal.selectArgument, map[string]string{
		controlDistrict: districtID,
		controlTehsil:   tehsilID,
		controlVillage:  villageID,
		controlYear:     year,
		controlKhasraNo: khasraID,
	}); err != nil {
		return nil, err
	}

	page, err := c.nakalPage(ctx, key)
	if err != nil {
		return nil, err
	}

	record := &models.LandRecord{
		DistrictName:  key.DistrictName,
		TehsilName:    key.TehsilName,
		VillageName:   key.VillageName,
		KhasraNo:      key.KhasraNo,
		DistrictCode:  districtID,
		TehsilCode:    tehsilID,
		VillageCode:   villageID,
		JamabandiYear: year,
		KhewatNo:      nakal.khewatNo,
		KhatoniNo:     nakal.khatoniNo,
		KhasraCode:    khasraID,
		NakalVillage:  page.village,
		NakalHadbast:  page.hadbast,
		NakalTehsil:   page.tehsil,
		NakalDistrict: page.district,
		NakalYear:     page.year,
	}

	c.log.Info("nakal fetched",
		zap.String("district_code", districtID),
		zap.String("village_code", villageID),
		zap.String("jamabandi_year", year))

	return record, nil
}

func validateKey(key models.RecordKey) error {
	if key.DistrictName == "" || key.TehsilName == "" || key.VillageName == "" || key.KhasraNo == "" {
		return errors.New("jamabandi: all four key fields are required")
	}
	return nil
}

func resolve(options map[string]string, name, what string) (string, error) {
	if id, ok := options[name]; ok {
		return id, nil
	}
	return "", apperrors.FetchError(
		fmt.Sprintf("%s %q is not listed by the portal", what, name), nil)
}

// formState holds the hidden WebForm tokens that must accompany every
// postback. eventArgument is carried from the initial page as-is.
type formState struct {
	viewState          string
	viewStateGenerator string
	eventValidation    string
	eventArgument      string
}

func (c *Client) loadForm(ctx context.Context) (*formState, error) {
	doc, err := c.get(ctx, c.recordURL(), "")
	if err != nil {
		return nil, err
	}

	state := &formState{
		viewState:          hiddenField(doc, "__VIEWSTATE"),
		viewStateGenerator: hiddenField(doc, "__VIEWSTATEGENERATOR"),
		eventValidation:    hiddenField(doc, "__EVENTVALIDATION"),
		eventArgument:      hiddenField(doc, "__EVENTARGUMENT"),
	}
	if state.viewState == "" || state.viewStateGenerator == "" || state.eventValidation == "" {
		return nil, apperrors.ErrPortalChanged.WithInternal(
			errors.New("hidden form fields missing from the NakalRecord page"))
	}

	return state, nil
}

// postStep performs one postback, refreshes the form tokens from the
// response and returns the parsed document.
func (c *Client) postStep(ctx context.Context, state *formState, eventTarget, eventArgument string, selections map[string]string) (*goquery.Document, error) {
	form := url.Values{
		"__EVENTTARGET":        {eventTarget},
		"__EVENTARGUMENT":      {eventArgument},
		"__LASTFOCUS":          {""},
		"__VIEWSTATE":          {state.viewState},
		"__VIEWSTATEGENERATOR": {state.viewStateGenerator},
		"__SCROLLPOSITIONX":    {"0"},
		"__SCROLLPOSITIONY":    {"0"},
		"__VIEWSTATEENCRYPTED": {""},
		"__EVENTVALIDATION":    {state.eventValidation},
		controlMode:            {"RdobtnKhasra"},
	}
	for name, value := range selections {
		form.Set(name, value)
	}

	doc, err := c.post(ctx, c.recordURL(), form)
	if err != nil {
		return nil, err
	}

	viewState := hiddenField(doc, "__VIEWSTATE")
	eventValidation := hiddenField(doc, "__EVENTVALIDATION")
	if viewState == "" || eventValidation == "" {
		return nil, apperrors.ErrPortalChanged.WithInternal(
			fmt.Errorf("hidden form fields missing after postback to %s", eventTarget))
	}
	state.viewState = viewState
	state.eventValidation = eventValidation

	return doc, nil
}

func (c *Client) recordURL() string {
	return c.baseURL.JoinPath("land records", "NakalRecord").String()
}

func (c *Client) nakalURL() string {
	return c.baseURL.JoinPath("land records", "Nakal_khewat").String()
}

func (c *Client) get(ctx context.Context, rawURL, referer string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.FetchError("building portal request", err)
	}
	c.decorate(req)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	return c.do(req)
}

func (c *Client) post(ctx context.Context, rawURL string, form url.Values) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.FetchError("building portal request", err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

func (c *Client) do(req *http.Request) (*goquery.Document, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrPortalUnreachable.WithInternal(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, apperrors.FetchError(
			fmt.Sprintf("portal returned status %d for %s", res.StatusCode, req.URL.Path), nil)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, apperrors.ErrPortalChanged.WithInternal(err)
	}

	return doc, nil
}

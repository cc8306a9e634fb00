package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/util"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

const (
	detailInvalidRacecourse = "無効な競馬場名です。"
	detailResultUnreachable = "レース結果ページにアクセスできません。"
	detailResultNotFound    = "レース結果が見つかりませんでした。"
	detailDateNotFound      = "指定された日付の開催データが見つかりませんでした。"
	detailDateFailed        = "データ取得に失敗しました。"
	detailBadRequest        = "リクエスト形式が正しくありません。"
)

// flexInt accepts both 5 and "05" since form clients send zero-padded strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("not a number: %s", raw)
	}
	*n = flexInt(v)
	return nil
}

type raceResultRequest struct {
	Racecourse string  `json:"racecourse"`
	Count      flexInt `json:"count"`
	RaceDate   flexInt `json:"race_date"`
	RaceNum    flexInt `json:"race_num"`
	Year       flexInt `json:"year"`
}

type dateResultRequest struct {
	Racecourse   string  `json:"racecourse"`
	SelectedDate string  `json:"selectedDate"`
	RaceNum      flexInt `json:"race_num"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, "healthy!")
}

func (s *Server) handleNice(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, "nice!")
}

type breakerView struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	FailureCount int        `json:"failure_count"`
	NextRetry    *time.Time `json:"next_retry,omitempty"`
}

// handleStatus lists upstream circuit breakers; the status is 503 while any is open.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	views := make([]breakerView, 0, len(s.breakers))
	status := http.StatusOK
	for _, group := range s.breakers {
		for _, st := range group() {
			if st.State == util.CircuitStateOpen {
				status = http.StatusServiceUnavailable
			}
			views = append(views, breakerView{
				Name:         st.Name,
				State:        st.State.String(),
				FailureCount: st.FailureCount,
				NextRetry:    st.NextRetryTime,
			})
		}
	}
	s.writeJSON(w, status, map[string]any{"breakers": views})
}

// handleRaceResult resolves racecourse/count/race_date/race_num to an id and returns
// the finishing order. A missing year means the current JST year.
func (s *Server) handleRaceResult(w http.ResponseWriter, r *http.Request) {
	var req raceResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, detailBadRequest)
		return
	}

	year := int(req.Year)
	if year == 0 {
		year = s.now().Year()
	}
	id, err := s.races.Resolve(r.Context(), domain.RaceQuery{
		Racecourse: strings.TrimSpace(req.Racecourse),
		Year:       year,
		Meeting:    int(req.Count),
		Day:        int(req.RaceDate),
		Race:       int(req.RaceNum),
	})
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, detailInvalidRacecourse)
		return
	}

	entries, err := s.races.ResultByID(r.Context(), id)
	switch {
	case errors.IsNotFound(err):
		s.writeDetail(w, http.StatusNotFound, detailResultNotFound)
	case err != nil:
		s.logger.Error("Race result fetch failed", zap.String("race_id", id.String()), zap.Error(err))
		s.writeDetail(w, http.StatusInternalServerError, detailResultUnreachable)
	case entries == nil:
		s.writeJSON(w, http.StatusOK, []domain.ResultEntry{})
	default:
		s.writeJSON(w, http.StatusOK, entries)
	}
}

// handleDateResult resolves a calendar date to a race id through the race list.
func (s *Server) handleDateResult(w http.ResponseWriter, r *http.Request) {
	var req dateResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, detailBadRequest)
		return
	}
	date, err := util.ParseDate(strings.TrimSpace(req.SelectedDate))
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, detailBadRequest)
		return
	}

	id, err := s.races.ResolveByDate(r.Context(), date, strings.TrimSpace(req.Racecourse), int(req.RaceNum))
	switch {
	case errors.IsValidation(err):
		s.writeDetail(w, http.StatusBadRequest, detailInvalidRacecourse)
	case errors.IsNotFound(err):
		s.writeDetail(w, http.StatusNotFound, detailDateNotFound)
	case err != nil:
		s.logger.Error("Date resolve failed", zap.String("date", req.SelectedDate), zap.Error(err))
		s.writeDetail(w, http.StatusInternalServerError, detailDateFailed)
	default:
		s.writeJSON(w, http.StatusOK, id.String())
	}
}

func (s *Server) raceID(r *http.Request) (domain.RaceID, error) {
	return domain.ParseRaceID(mux.Vars(r)["id"])
}

func (s *Server) handleRaceProduct(w http.ResponseWriter, r *http.Request) {
	id, err := s.raceID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	var body any
	switch product := mux.Vars(r)["product"]; product {
	case "result":
		body, err = s.races.ResultByID(ctx, id)
	case "info":
		body, err = s.races.Info(ctx, id)
	case "payouts":
		body, err = s.races.Payouts(ctx, id)
	case "corners":
		body, err = s.races.Corners(ctx, id)
	case "laps":
		body, err = s.races.Laps(ctx, id)
	case "database":
		body, err = s.races.Database(ctx, id)
	default:
		s.writeDetail(w, http.StatusNotFound, "unknown product: "+product)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	id, err := s.raceID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bet, err := domain.ParseBetType(mux.Vars(r)["bet"])
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.races.Odds(r.Context(), id, bet, r.URL.Query().Get("source"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAllOdds(w http.ResponseWriter, r *http.Request) {
	id, err := s.raceID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	set, err := s.races.AllOdds(r.Context(), id, r.URL.Query().Get("source"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, set)
}

// handleRaceIDs lists race ids for ?date=YYYY-MM-DD, ?month=YYYY-MM or ?year=YYYY.
func (s *Server) handleRaceIDs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	var (
		ids []string
		err error
	)
	switch {
	case q.Get("date") != "":
		date, perr := util.ParseDate(q.Get("date"))
		if perr != nil {
			s.writeDetail(w, http.StatusBadRequest, perr.Error())
			return
		}
		ids, err = s.races.RaceIDsByDate(ctx, date)
	case q.Get("month") != "":
		month, perr := time.ParseInLocation("2006-01", q.Get("month"), util.JST())
		if perr != nil {
			s.writeDetail(w, http.StatusBadRequest, perr.Error())
			return
		}
		ids, err = s.races.RaceIDsByMonth(ctx, month.Year(), month.Month())
	case q.Get("year") != "":
		year := util.Atoi(q.Get("year"), 0)
		if year == 0 {
			s.writeDetail(w, http.StatusBadRequest, "invalid year")
			return
		}
		ids, err = s.races.RaceIDsByYear(ctx, year)
	default:
		s.writeDetail(w, http.StatusBadRequest, "date, month or year is required")
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleHorseProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	horseID := vars["id"]
	ctx := r.Context()

	var (
		body any
		err  error
	)
	switch product := vars["product"]; product {
	case "results":
		body, err = s.races.HorseResults(ctx, horseID)
	case "pedigree":
		body, err = s.races.Pedigree(ctx, horseID)
	case "profile":
		body, err = s.races.HorseProfile(ctx, horseID)
	default:
		s.writeDetail(w, http.StatusNotFound, "unknown product: "+product)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

// handleUmabashira returns the index view, or the whole grid with ?full=true.
func (s *Server) handleUmabashira(w http.ResponseWriter, r *http.Request) {
	id, err := s.raceID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body any
	if full, _ := strconv.ParseBool(r.URL.Query().Get("full")); full {
		body, err = s.races.UmabashiraGrid(r.Context(), id)
	} else {
		body, err = s.races.Umabashira(r.Context(), id)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

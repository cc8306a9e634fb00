package netkeiba

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/annko/keiba-bot-go/internal/service/fetch"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

const resultPage = `<html><body>
<div id="tab_ResultSelect_1_con"><table class="RaceTable01">
<thead><tr><th>着順</th><th>枠</th><th>馬番</th><th>馬名</th><th>性齢</th><th>斤量</th><th>騎手</th><th>タイム</th><th>着差</th><th>人気</th><th>単勝オッズ</th></tr></thead>
<tbody>
<tr><td>1</td><td><span>4</span></td><td>7</td><td>
<a href="https://db.netkeiba.com/horse/2019105219">ドウデュース</a>
</td><td>牡5</td><td>58.0</td><td>武豊</td><td>1:57.3</td><td></td><td>2</td><td>3.9</td></tr>
<tr><td>除外</td><td><img src="waku.png" alt="8"></td><td>17</td><td>ホウオウビスケッツ</td></tr>
</tbody></table></div>
</body></html>`

const databasePage = `<html><body>
<div class="data_intro">
<dl class="racedata fc"><dt>11 R</dt><dd><h1>天皇賞(秋)(G1)</h1>
<p><diary_snap_cut><span>芝左2000m&nbsp;/&nbsp;天候 : 晴&nbsp;/&nbsp;芝 : 良&nbsp;/&nbsp;発走 : 15:40</span></diary_snap_cut></p></dd></dl>
<p class="smalltxt">2024年10月27日 4回東京9日目 3歳以上オープン&nbsp;&nbsp;(国際)(指)(定量)</p>
</div>
<table class="race_table_01 nk_tb_common" summary="レース結果">
<tr><th>着順</th><th>枠番</th><th>馬番</th><th>馬名</th><th>性齢</th><th>斤量</th><th>騎手</th><th>タイム</th><th>着差</th><th>ﾀｲﾑ指数</th><th>通過</th><th>上り</th><th>単勝</th><th>人気</th><th>馬体重</th><th>調教ﾀｲﾑ</th><th>厩舎ｺﾒﾝﾄ</th><th>備考</th><th>調教師</th><th>馬主</th><th>賞金(万円)</th></tr>
<tr><td>1</td><td>4</td><td>7</td><td><a href="/horse/2019105219/">ドウデュース</a></td><td>牡5</td><td>58</td><td><a href="/jockey/result/recent/00666/">武豊</a></td><td>1:57.3</td><td></td><td>118</td><td>14-14-14</td><td>32.5</td><td>3.9</td><td>2</td><td>506(+2)</td><td>**</td><td>**</td><td></td><td>[東]<a href="/trainer/result/recent/01061/">友道康夫</a></td><td><a href="/owner/result/recent/226800/">キーファーズ</a></td><td>22,000.0</td></tr>
<tr><td>2</td><td>8</td><td>15</td><td><a href="/horse/2020103599/">タスティエーラ</a></td><td>牡4</td><td>58</td><td><a href="/jockey/result/recent/05339/">Ｃ．ルメール</a></td><td>1:57.4</td><td>1/2</td><td>116</td><td>4-4-4</td><td>33.8</td><td>8.8</td><td>4</td><td>494(0)</td><td>**</td><td>**</td><td></td><td>[東]<a href="/trainer/result/recent/01071/">堀宣行</a></td><td>キャロットファーム</td><td>8,800.0</td></tr>
</table>
<table summary="コーナー通過順位"><tr><th>2コーナー</th><td>3,11(4,16)</td></tr><tr><th>4コーナー</th><td>3,11,(4,16)7</td></tr></table>
<table summary="ラップタイム"><tr><th>ラップ</th><td class="race_lap_cell">12.9 - 11.8 - 12.1</td></tr><tr><th>ペース</th><td class="race_lap_cell">12.9 - 24.7 - 36.8</td></tr></table>
<table class="pay_table_01"><tr><th class="tan">単勝</th><td>7</td><td class="txt_r">390</td><td class="txt_r">2</td></tr>
<tr><th class="fuku">複勝</th><td>7<br>15<br>3</td><td class="txt_r">150<br>250<br>1,020</td><td class="txt_r">2<br>4<br>9</td></tr></table>
<table class="pay_table_01"><tr><th class="tan">三連単</th><td>7 → 15 → 3</td><td class="txt_r">123,450</td><td class="txt_r">321</td></tr></table>
</body></html>`

const raceListPage = `<div class="race_list fc"><dl><dd>
<a href="/race/202405040911/">天皇賞(秋)</a>
<a href="/race/202405040901/">2歳未勝利</a>
<a href="/race/movie/202405040911">映像</a>
</dd></dl></div>`

const horsePage = `<html><body>
<div class="horse_title"><p class="txt_01">現役　牡5　鹿毛</p></div>
<div class="db_prof_area_02"><table class="db_prof_table"><tr><th>生年月日</th><td>2019年5月7日</td></tr><tr><th>調教師</th><td>友道康夫</td></tr></table></div>
<table class="db_h_race_results">
<thead><tr><th>日付</th><th>開催</th><th>レース名</th><th>着順</th></tr></thead>
<tbody>
<tr><td>2024/10/27</td><td>4東京9</td><td><a href="/race/202405040911/">天皇賞(秋)(G1)</a></td><td>1</td></tr>
<tr><td>2024/06/23</td><td>3京都4</td><td><a href="/race/202408030411/">宝塚記念(G1)</a></td><td>6</td></tr>
</tbody></table>
</body></html>`

const pedigreePage = `<table class="blood_table">
<tr><td rowspan="16"><a href="/horse/2011102948/">ハーツクライ
2001 鹿毛</a><a href="/horse/sire/2011102948/">産駒</a></td>
<td rowspan="8"><a href="/horse/000a0012bf/">サンデーサイレンス</a></td>
<td rowspan="4"><a href="/horse/000a001a2f/">Halo</a></td>
<td rowspan="2"><a href="/horse/000a00165f/">Hail to Reason</a></td>
<td><a href="/horse/000a000c0e/">Turn-to</a></td></tr>
<tr><td><a href="/horse/000a000dab/">Nothirdchance</a></td></tr>
<tr><td rowspan="16"><a href="/horse/2003102991/">ダストアンドダイヤモンズ</a></td></tr>
</table>`

const calendarPage = `<table class="Calendar_Table">
<tr><td><a href="../top/race_list.html?kaisai_date=20241026">26</a></td>
<td><a href="../top/race_list.html?kaisai_date=20241027">27</a></td></tr></table>`

const spRaceListPage = `<div class="RaceList_Item">
<div class="Race_Num Race_Fixed"><span>10R</span><span class="MyRaceCheck" id="myrace_202405040910"></span></div>
<div class="Race_Num Race_Fixed"><span>11R</span><span class="MyRaceCheck" id="myrace_202405040911"></span></div>
</div>`

func umabashiraPage() string {
	var b strings.Builder
	b.WriteString(`<table class="c1">`)
	for r := 0; r < 21; r++ {
		fmt.Fprintf(&b, "<tr><td>b-%d</td><td>a-%d</td><td>label-%d</td></tr>", r, r, r)
	}
	b.WriteString(`</table>`)
	return b.String()
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := fetch.DocumentFromHTML(html)
	require.NoError(t, err)
	return doc
}

// fakeFetcher serves canned markup by URL and records the request order.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	fallback string
	loggedIn bool
	requests []string
}

func (f *fakeFetcher) Document(ctx context.Context, url, charset string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, url)
	f.mu.Unlock()

	page, ok := f.pages[url]
	if !ok {
		if f.fallback == "" {
			return nil, errors.NewAPIError("unexpected status 404", 404, map[string]any{"url": url})
		}
		page = f.fallback
	}
	return fetch.DocumentFromHTML(page)
}

func (f *fakeFetcher) LoggedIn() bool {
	return f.loggedIn
}

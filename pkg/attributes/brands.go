package attributes

import "sort"

// identifierBrandPrefixes maps the first three characters of a catalog
// identifier to the canonical (Korean-market) brand name.
var identifierBrandPrefixes = map[string]string{
	"DRB": "닥터스베스트",
	"NOW": "나우푸드",
	"LEX": "라이프익스텐션",
	"THR": "쏜리서치",
	"JRW": "재로우",
	"SRE": "스포츠리서치",
	"SOL": "솔가",
	"BLB": "블루보넷",
	"QLL": "Quality of Life",
	"NFS": "네추럴팩터스",
	"CDL": "차일드라이프",
	"INV": "InnovixLabs",
	"AUN": "오로라뉴트라사이언스",
	"NOR": "노르딕내추럴스",
	"GOL": "가든오브라이프",
	"AGE": "Amazing Grass",
	"PHV": "Pure Hawaiian",
	"BOI": "Boiron",
	"BGA": "BioGaia",
	"PAR": "파라다이스허브",
	"WAK": "쿄릭",
	"ENZ": "Enzymedica",
	"FHH": "이지맘",
	"OPN": "옵티멈뉴트리션",
	"RSH": "RevitaLash",
	"ATK": "앳킨스",
	"GAI": "가이아허브",
	"CLF": "컨트리라이프",
	"ADC": "더마이",
	"NWY": "네이처스웨이",
	"OGA": "올게인",
	"MCL": "닥터메르콜라",
	"MLV": "마더러브",
	"EMT": "Enzymatic Therapy",
	"NUT": "뉴트리콜로지",
	"CAL": "캘리포니아골드",
	"AOR": "AOR",
	"HEB": "Herb Pharm",
	"MRM": "MRM",
	"REN": "Renew Life",
	"KAL": "KAL",
	"NAT": "Natrol",
	"SOU": "Source Naturals",
	"SUN": "Sundown",
	"SWA": "스완슨",
	"QUE": "Quest",
	"ZEN": "Zenwise",
}

// brandAliases maps lowercased substrings of a product name to the canonical
// brand. English spellings, spacing variants and Korean transliterations all
// collapse onto one canonical name.
var brandAliases = map[string]string{
	"doctor's best":            "닥터스베스트",
	"doctors best":             "닥터스베스트",
	"dr best":                  "닥터스베스트",
	"닥터스베스트":                   "닥터스베스트",
	"닥터스 베스트":                  "닥터스베스트",
	"닥터 베스트":                   "닥터스베스트",
	"닥터베스트":                    "닥터스베스트",
	"now foods":                "나우푸드",
	"now":                      "나우푸드",
	"나우푸드":                     "나우푸드",
	"나우 푸드":                    "나우푸드",
	"life extension":           "라이프익스텐션",
	"lifeextension":            "라이프익스텐션",
	"라이프익스텐션":                  "라이프익스텐션",
	"라이프 익스텐션":                 "라이프익스텐션",
	"thorne research":          "쏜리서치",
	"thorne":                   "쏜리서치",
	"쏜리서치":                     "쏜리서치",
	"쏜 리서치":                    "쏜리서치",
	"쏜":                        "쏜리서치",
	"jarrow formulas":          "재로우",
	"jarrow":                   "재로우",
	"재로우":                      "재로우",
	"자로우":                      "재로우",
	"sports research":          "스포츠리서치",
	"sportsresearch":           "스포츠리서치",
	"스포츠리서치":                   "스포츠리서치",
	"스포츠 리서치":                  "스포츠리서치",
	"solgar":                   "솔가",
	"솔가":                       "솔가",
	"garden of life":           "가든오브라이프",
	"gardenoflife":             "가든오브라이프",
	"가든오브라이프":                  "가든오브라이프",
	"가든 오브 라이프":                "가든오브라이프",
	"nature's way":             "네이처스웨이",
	"natures way":              "네이처스웨이",
	"naturesway":               "네이처스웨이",
	"네이처스웨이":                   "네이처스웨이",
	"네이처스 웨이":                  "네이처스웨이",
	"bluebonnet nutrition":     "블루보넷",
	"bluebonnet":               "블루보넷",
	"blue bonnet":              "블루보넷",
	"블루보넷":                     "블루보넷",
	"quality of life":          "Quality of Life",
	"nutricology":              "뉴트리콜로지",
	"뉴트리콜로지":                   "뉴트리콜로지",
	"natural factors":          "네추럴팩터스",
	"naturalfactors":           "네추럴팩터스",
	"네추럴팩터스":                   "네추럴팩터스",
	"내추럴팩터스":                   "네추럴팩터스",
	"childlife":                "차일드라이프",
	"child life":               "차일드라이프",
	"차일드라이프":                   "차일드라이프",
	"innovixlabs":              "InnovixLabs",
	"innovix labs":             "InnovixLabs",
	"aurora nutrascience":      "오로라뉴트라사이언스",
	"aurora":                   "오로라뉴트라사이언스",
	"오로라뉴트라사이언스":               "오로라뉴트라사이언스",
	"nordic naturals":          "노르딕내추럴스",
	"nordicnaturals":           "노르딕내추럴스",
	"노르딕내추럴스":                  "노르딕내추럴스",
	"노르딕 내추럴스":                 "노르딕내추럴스",
	"amazing grass":            "Amazing Grass",
	"paradise herbs":           "파라다이스허브",
	"파라다이스허브":                  "파라다이스허브",
	"wakunaga":                 "쿄릭",
	"kyolic":                   "쿄릭",
	"쿄릭":                       "쿄릭",
	"enzymedica":               "Enzymedica",
	"fairhaven health":         "이지맘",
	"fairhaven":                "이지맘",
	"이지맘":                      "이지맘",
	"optimum nutrition":        "옵티멈뉴트리션",
	"optimumnutrition":         "옵티멈뉴트리션",
	"옵티멈뉴트리션":                  "옵티멈뉴트리션",
	"옵티멈 뉴트리션":                 "옵티멈뉴트리션",
	"revitalash":               "RevitaLash",
	"atkins":                   "앳킨스",
	"앳킨스":                      "앳킨스",
	"gaia herbs":               "가이아허브",
	"gaiaherbs":                "가이아허브",
	"가이아허브":                    "가이아허브",
	"country life":             "컨트리라이프",
	"countrylife":              "컨트리라이프",
	"컨트리라이프":                   "컨트리라이프",
	"derma e":                  "더마이",
	"dermae":                   "더마이",
	"더마이":                      "더마이",
	"orgain":                   "올게인",
	"올게인":                      "올게인",
	"dr. mercola":              "닥터메르콜라",
	"dr mercola":               "닥터메르콜라",
	"mercola":                  "닥터메르콜라",
	"닥터메르콜라":                   "닥터메르콜라",
	"motherlove":               "마더러브",
	"mother love":              "마더러브",
	"마더러브":                     "마더러브",
	"enzymatic therapy":        "Enzymatic Therapy",
	"california gold nutrition": "캘리포니아골드",
	"california gold":          "캘리포니아골드",
	"캘리포니아골드":                  "캘리포니아골드",
	"캘리포니아 골드":                 "캘리포니아골드",
	"swanson":                  "스완슨",
	"스완슨":                      "스완슨",
	"source naturals":          "소스내추럴스",
	"sourcenaturals":           "소스내추럴스",
	"소스내추럴스":                   "소스내추럴스",
	"nature made":              "네이처메이드",
	"naturemade":               "네이처메이드",
	"네이처메이드":                   "네이처메이드",
	"kirkland signature":       "커클랜드",
	"kirkland":                 "커클랜드",
	"커클랜드":                     "커클랜드",
	"puritan's pride":          "퓨리탄",
	"puritans pride":           "퓨리탄",
	"puritan":                  "퓨리탄",
	"퓨리탄":                      "퓨리탄",
	"vitafusion":               "비타퓨전",
	"비타퓨전":                     "비타퓨전",
	"viva naturals":            "비바내추럴스",
	"비바내추럴스":                   "비바내추럴스",
	"natrol":                   "내트롤",
	"내트롤":                      "내트롤",
	"nature's bounty":          "네이처바운티",
	"natures bounty":           "네이처바운티",
	"네이처바운티":                   "네이처바운티",
	"gnc":                      "GNC",
	"지앤씨":                      "GNC",
	"centrum":                  "센트룸",
	"센트룸":                      "센트룸",
	"megafood":                 "메가푸드",
	"mega food":                "메가푸드",
	"메가푸드":                     "메가푸드",
	"new chapter":              "뉴챕터",
	"뉴챕터":                      "뉴챕터",
	"rainbow light":            "레인보우라이트",
	"레인보우라이트":                  "레인보우라이트",
	"renew life":               "리뉴라이프",
	"renewlife":                "리뉴라이프",
	"리뉴라이프":                    "리뉴라이프",
	"quest nutrition":          "퀘스트",
	"quest":                    "퀘스트",
	"퀘스트":                      "퀘스트",
	"kal":                      "KAL",
	"herb pharm":               "허브팜",
	"herbpharm":                "허브팜",
	"허브팜":                      "허브팜",
	"eclectic institute":       "이클렉틱",
	"이클렉틱":                     "이클렉틱",
	"planetary herbals":        "플래네터리허벌스",
	"mrm":                      "MRM",
	"allergy research":         "알러지리서치",
	"알러지리서치":                   "알러지리서치",
	"pure encapsulations":      "퓨어인캡슐레이션스",
	"퓨어인캡슐레이션스":                "퓨어인캡슐레이션스",
	"integrative therapeutics": "인테그러티브",
	"douglas labs":             "더글라스",
	"designs for health":       "디자인스포헬스",
	"klaire labs":              "클레어랩스",
	"biotics research":         "바이오틱스",
	"xymogen":                  "자이모젠",
	"ortho molecular":          "오르소몰레큘러",
	"orthomolecular":           "오르소몰레큘러",
	"metagenics":               "메타제닉스",
	"메타제닉스":                    "메타제닉스",
	"zhou nutrition":           "저우",
	"zhou":                     "저우",
	"bsn":                      "BSN",
	"cellucor":                 "셀루코어",
	"muscletech":               "머슬테크",
	"muscle tech":              "머슬테크",
	"머슬테크":                     "머슬테크",
	"dymatize":                 "다이마타이즈",
	"universal nutrition":      "유니버셜",
	"bulk supplements":         "벌크서플리먼츠",
	"bulksupplements":          "벌크서플리먼츠",
	"nutricost":                "뉴트리코스트",
	"뉴트리코스트":                   "뉴트리코스트",
	"vital proteins":           "바이탈프로틴스",
	"vitalproteins":            "바이탈프로틴스",
	"바이탈프로틴스":                  "바이탈프로틴스",
	"ancient nutrition":        "에인션트뉴트리션",
	"primal kitchen":           "프라이멀",
	"paleovalley":              "팔레오밸리",
	"paleo valley":             "팔레오밸리",
	"naturelo":                 "내츄렐로",
	"내츄렐로":                     "내츄렐로",
	"ritual":                   "리추얼",
	"리추얼":                      "리추얼",
	"hum nutrition":            "HUM",
	"olly":                     "올리",
	"올리":                       "올리",
	"smartypants":              "스마티팬츠",
	"smarty pants":             "스마티팬츠",
	"스마티팬츠":                    "스마티팬츠",
}

// orderedAliases holds the alias keys longest-first, so a short alias that is
// a substring of a longer brand name ("now" in "now foods") can never shadow
// the longer match.
var orderedAliases = func() []string {
	keys := make([]string, 0, len(brandAliases))
	for k := range brandAliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

package expander

// Built-in synonym groups. Keys are canonical snake_case terms.

var populationTerms = map[string][]string{
	"reentry": {
		"re-entry", "reintegration", "returning citizen", "returning citizens",
		"formerly incarcerated", "post-release", "post release", "second chance",
		"coming home", "justice involved", "justice-impacted",
	},
	"incarceration": {
		"prison", "jail", "incarcerated", "locked up", "doing time",
		"behind bars", "inmate", "corrections",
	},
	"parole": {
		"parolee", "probation", "probation officer", "parole officer",
		"community supervision", "supervised release",
	},
	"criminal_record": {
		"record", "background check", "felony", "conviction", "expungement",
		"record sealing", "ban the box",
	},
	"veteran": {
		"veterans", "military", "service member", "former military",
		"transitioning service member",
	},
	"single_parent": {
		"single mom", "single dad", "single mother", "single father",
		"solo parent", "co-parent",
	},
	"first_generation": {
		"first-gen", "first gen", "first in family", "first generation student",
	},
	"low_income": {
		"poverty", "financial hardship", "limited income", "struggling financially",
		"underserved", "under-resourced",
	},
	"recovery": {
		"sobriety", "sober", "addiction recovery", "substance use", "clean time",
		"twelve step", "12-step",
	},
	"immigrant": {
		"immigrants", "newcomer", "refugee", "asylum seeker", "new american",
		"english learner",
	},
	"youth": {
		"young adult", "teen", "teenager", "emerging adult", "aging out",
		"foster youth",
	},
	"housing": {
		"homeless", "homelessness", "unhoused", "transitional housing",
		"halfway house", "shelter", "sober living",
	},
	"employment": {
		"job search", "job hunting", "hiring", "second chance employer",
		"work history", "resume gap", "interview",
	},
}

var businessTerms = map[string][]string{
	"startup": {
		"start-up", "new business", "launch", "launching", "starting a business",
		"venture", "founder",
	},
	"side_hustle": {
		"side business", "gig", "gig work", "extra income", "moonlighting",
		"part-time business",
	},
	"revenue": {
		"sales", "income", "earnings", "top line", "money coming in",
	},
	"cash_flow": {
		"cashflow", "cash", "working capital", "runway", "burn rate",
		"money management",
	},
	"pricing": {
		"price", "prices", "rates", "charging", "what to charge", "fees",
		"value-based pricing",
	},
	"marketing": {
		"promotion", "advertising", "social media", "content marketing",
		"outreach", "brand awareness",
	},
	"customer_acquisition": {
		"customers", "clients", "lead generation", "leads", "finding customers",
		"prospecting", "pipeline",
	},
	"funding": {
		"capital", "loan", "microloan", "grant", "grants", "investor",
		"investment", "crowdfunding", "financing",
	},
	"business_plan": {
		"plan", "business model", "lean canvas", "strategy", "roadmap",
	},
	"branding": {
		"brand", "logo", "brand identity", "positioning", "messaging",
	},
	"bookkeeping": {
		"accounting", "books", "receipts", "expenses", "taxes",
		"invoicing", "invoice",
	},
	"legal_structure": {
		"llc", "sole proprietor", "sole proprietorship", "incorporate",
		"business license", "registration",
	},
	"credit": {
		"credit score", "business credit", "credit repair", "debt",
	},
	"networking": {
		"network", "connections", "mentorship", "mentor", "referrals",
		"partnerships",
	},
	"scaling": {
		"growth", "grow", "expand", "expansion", "hiring staff", "systems",
	},
}

var behavioralTerms = map[string][]string{
	"procrastination": {
		"procrastinate", "putting off", "delay", "stalling", "avoidance",
		"can't get started",
	},
	"perfectionism": {
		"perfectionist", "perfect", "never good enough", "overthinking",
		"analysis paralysis",
	},
	"self_doubt": {
		"doubt", "insecurity", "low confidence", "lack of confidence",
		"not good enough", "second guessing",
	},
	"impostor_syndrome": {
		"imposter syndrome", "impostor", "imposter", "feel like a fraud",
		"don't belong",
	},
	"overwhelm": {
		"overwhelmed", "too much", "stressed", "stress", "swamped",
		"burned out", "burnout",
	},
	"fear_of_failure": {
		"afraid to fail", "failure", "fear", "scared", "risk averse",
		"playing it safe",
	},
	"motivation": {
		"motivated", "unmotivated", "drive", "inspiration", "energy",
		"lack of motivation",
	},
	"discipline": {
		"self-discipline", "willpower", "self control", "habits", "habit",
		"routine",
	},
	"consistency": {
		"consistent", "inconsistent", "follow through", "streak",
		"showing up", "staying on track",
	},
	"resilience": {
		"bounce back", "setback", "setbacks", "grit", "perseverance",
		"comeback",
	},
	"identity": {
		"self-image", "who i am", "identity shift", "new identity",
		"self-concept", "past self",
	},
	"self_sabotage": {
		"sabotage", "self-sabotaging", "getting in my own way",
		"self-defeating", "undermining",
	},
	"anxiety": {
		"anxious", "worry", "worried", "nervous", "panic", "racing thoughts",
	},
	"anger": {
		"angry", "frustration", "frustrated", "outburst", "resentment",
		"temper",
	},
	"shame": {
		"guilt", "ashamed", "embarrassed", "stigma", "regret",
	},
	"focus": {
		"distracted", "distraction", "attention", "concentration",
		"deep work", "scattered",
	},
	"gratitude": {
		"grateful", "thankful", "appreciation", "counting blessings",
	},
}

package bots

// SunoSelectors locates the elements the generation worker touches
type SunoSelectors struct {
	SignUp          string
	MicrosoftButton string
	MSUser          string
	MSPassword      string
	MSNext          string
	MSAccept        string

	PromptInput  string
	CreateButton string
	Credits      string
	// ClipList is the container whose HTML is parsed for clips
	ClipList string
	Clip     ClipSelectors
}

// ClipSelectors describes one generated clip row
type ClipSelectors struct {
	Row     string
	IDAttr  string
	Title   string
	Tags    string
	Pending string
}

// SoundCloudSelectors locates the elements the publish worker touches
type SoundCloudSelectors struct {
	LoginButton    string
	GoogleButton   string
	GoogleUser     string
	GoogleUserNext string
	GooglePassword string
	GooglePassNext string
	AcceptCookies  string

	NoPlaylist   string
	ChooseFiles  string
	UploadStatus string
	EntryTitle   string
	EntryImage   string
	EntryTags    string
	EntryGenre   string
	SaveButton   string

	AccessDenied     string
	MonetizationForm string
}

func DefaultSunoSelectors() SunoSelectors {
	return SunoSelectors{
		SignUp:          "nav > div.css-7a2ne0 > div:nth-child(3) > button",
		MicrosoftButton: "button.cl-socialButtonsIconButton.cl-socialButtonsIconButton__microsoft",
		MSUser:          "#i0116",
		MSPassword:      "#i0118",
		MSNext:          "#idSIButton9",
		MSAccept:        "#acceptButton",

		PromptInput:  "div.chakra-stack.css-131jemj > div.chakra-stack.css-10k728o > textarea",
		CreateButton: "div.chakra-stack.css-10k728o > div > button.chakra-button",
		Credits:      ".chakra-text.css-itvw0n",
		ClipList:     "body",
		Clip: ClipSelectors{
			Row:     "[data-clip-id]",
			IDAttr:  "data-clip-id",
			Title:   "p.chakra-text.css-1fq6tx5",
			Tags:    "p.chakra-text.css-1icp0bk",
			Pending: ".chakra-spinner",
		},
	}
}

func DefaultSoundCloudSelectors() SoundCloudSelectors {
	return SoundCloudSelectors{
		LoginButton:    ".loginButton",
		GoogleButton:   "div.provider-buttons > div > button.google-plus-signin.sc-button-google",
		GoogleUser:     "input#identifierId",
		GoogleUserNext: "div#identifierNext > div > button",
		GooglePassword: "div#password > div > div > div > input",
		GooglePassNext: "#passwordNext > div > button",
		AcceptCookies:  "#onetrust-accept-btn-handler",

		NoPlaylist:   "input.sc-checkbox-input.sc-visuallyhidden",
		ChooseFiles:  "input.chooseFiles__input.sc-visuallyhidden",
		UploadStatus: "span.uploadButton__title",
		EntryTitle:   "div.baseFields__data > div.baseFields__title > div.textfield > div.textfield__inputWrapper > input",
		EntryImage:   "input.imageChooser__fileInput.sc-visuallyhidden",
		EntryTags:    "input.tagInput__input.tokenInput__input",
		EntryGenre:   "div.baseFields__genre input",
		SaveButton:   "button.sc-button-cta[type=submit]",

		AccessDenied:     "#right-before-content > div",
		MonetizationForm: "#monetization-form",
	}
}

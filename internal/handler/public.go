package handler

import "net/http"

// Index отображает главную страницу с каталогом тарифов.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	tariffs, err := h.service.ListTariffs(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "index", "Оплата обучения", tariffs)
}

// Tuition отображает тарифы с формой перехода к оплате.
func (h *Handler) Tuition(w http.ResponseWriter, r *http.Request) {
	tariffs, err := h.service.ListTariffs(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "tuition", "Стоимость обучения", tariffs)
}

// FAQ отображает ответы на частые вопросы.
func (h *Handler) FAQ(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "faq", "Частые вопросы", nil)
}

type contactForm struct {
	Name    string
	Email   string
	Message string
}

// ContactForm отображает форму обратной связи.
func (h *Handler) ContactForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "contact", "Контакты", contactForm{})
}

// SubmitContact сохраняет сообщение из формы обратной связи.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := contactForm{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Message: r.PostFormValue("message"),
	}

	err := h.service.SubmitContact(r.Context(), form.Name, form.Email, form.Message)
	if err != nil {
		if msg, ok := flashMessage(err); ok {
			h.redirectWithFlash(w, r, "/contact", msg)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/contact", "Спасибо! Мы ответим вам в ближайшее время.")
}

package api

type layoutData struct {
	Section    string
	DebounceMS int64
}

// layoutHTML is the page shell. Everything inside #content, #modal and
// #toasts arrives as server-rendered fragments swapped in by X-Target.
const layoutHTML = `<!DOCTYPE html>
<html lang="it">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>SEO Console</title>
    <style>
        body { font-family: system-ui, sans-serif; font-size: 14px; margin: 0; background: #f5f6f8; color: #222; }
        .sidebar { position: fixed; inset: 0 auto 0 0; width: 200px; background: #1d2733; padding: 16px 8px; }
        .sidebar h1 { color: #fff; font-size: 16px; margin: 0 8px 16px; }
        .sidebar a { display: block; color: #b8c4d0; padding: 8px; border-radius: 4px; text-decoration: none; }
        .sidebar a.active, .sidebar a:hover { background: #2c3a4a; color: #fff; }
        .sidebar kbd { float: right; font-size: 11px; opacity: .6; }
        main { margin-left: 216px; padding: 24px; }
        .section-header { display: flex; align-items: center; justify-content: space-between; gap: 8px; }
        .stats { display: flex; flex-wrap: wrap; gap: 12px; margin: 16px 0; }
        .stat { background: #fff; border-radius: 6px; padding: 12px 16px; min-width: 120px; }
        .stat-value { display: block; font-size: 22px; font-weight: 600; }
        .stat-label { color: #667; font-size: 12px; }
        .table { width: 100%; border-collapse: collapse; background: #fff; }
        .table th, .table td { padding: 8px; border-bottom: 1px solid #e3e6ea; text-align: left; }
        .filters { display: flex; gap: 8px; margin: 12px 0; }
        .badge { display: inline-block; padding: 2px 8px; border-radius: 10px; font-size: 12px; background: #e3e6ea; }
        .badge-success { background: #d4f2dc; color: #1b6b32; }
        .badge-warning { background: #fdeccf; color: #8a5300; }
        .badge-danger { background: #fbd9dd; color: #9b1c2c; }
        .badge-info { background: #d8ebfb; color: #0f5787; }
        .btn { display: inline-block; padding: 6px 12px; border-radius: 4px; border: 0; background: #e3e6ea; color: #222; text-decoration: none; cursor: pointer; }
        .btn-primary { background: #1974d2; color: #fff; }
        .btn-danger { background: #c62f3e; color: #fff; }
        .btn-small { padding: 2px 8px; font-size: 12px; }
        .actions a { margin-right: 8px; }
        .pagination { margin: 12px 0; display: flex; gap: 4px; align-items: center; }
        .page { padding: 2px 8px; border-radius: 3px; }
        .page.active { background: #1974d2; color: #fff; }
        .page.disabled { opacity: .4; }
        .empty-state { background: #fff; padding: 32px; text-align: center; border-radius: 6px; }
        .muted { color: #889; }
        .field-error, .error { color: #c62f3e; font-size: 12px; }
        .alert-danger { background: #fbd9dd; color: #9b1c2c; padding: 8px 12px; border-radius: 4px; margin: 8px 0; }
        #modal-backdrop { position: fixed; inset: 0; background: rgba(0,0,0,.35); display: flex; align-items: flex-start; justify-content: center; padding-top: 8vh; }
        #modal-backdrop[hidden] { display: none; }
        .modal { background: #fff; border-radius: 6px; padding: 20px; width: 480px; max-height: 80vh; overflow: auto; }
        .modal label { display: block; margin: 8px 0 2px; }
        .modal input, .modal select, .modal textarea { width: 100%; box-sizing: border-box; }
        .modal-actions { display: flex; justify-content: flex-end; gap: 8px; margin-top: 16px; }
        #toasts { position: fixed; right: 16px; bottom: 16px; display: flex; flex-direction: column-reverse; gap: 8px; }
        .toast { background: #fff; border-left: 4px solid #1974d2; padding: 10px 12px; box-shadow: 0 2px 8px rgba(0,0,0,.15); min-width: 260px; }
        .toast-success { border-color: #2e9d4f; }
        .toast-error { border-color: #c62f3e; }
        .toast-warning { border-color: #e09400; }
        .toast-close { float: right; border: 0; background: none; cursor: pointer; }
    </style>
</head>
<body data-section="{{.Section}}" data-debounce="{{.DebounceMS}}">
    <nav class="sidebar">
        <h1>SEO Console</h1>
        <a href="#dashboard" data-nav="dashboard">Dashboard <kbd>d</kbd></a>
        <a href="#clients" data-nav="clients">Clienti <kbd>c</kbd></a>
        <a href="#websites" data-nav="websites">Siti web <kbd>w</kbd></a>
        <a href="#scans" data-nav="scans">Scansioni <kbd>s</kbd></a>
        <a href="#scheduler" data-nav="scheduler">Pianificazioni <kbd>p</kbd></a>
        <a href="#issues" data-nav="issues">Tipi di problema</a>
    </nav>
    <main id="content"></main>
    <div id="modal-backdrop" hidden><div id="modal"></div></div>
    <div id="toasts" aria-live="polite"></div>

    <script>
    (function () {
        const body = document.body;
        const debounceMS = parseInt(body.dataset.debounce, 10) || 300;
        const backdrop = document.getElementById('modal-backdrop');
        let toastTimer = null;

        function closeModal() {
            backdrop.hidden = true;
            document.getElementById('modal').innerHTML = '';
        }

        async function request(method, url, form) {
            const opts = { method: method, headers: { 'X-Requested-With': 'fetch' } };
            if (form) {
                opts.body = new URLSearchParams(new FormData(form));
            }
            let resp;
            try {
                resp = await fetch(url, opts);
            } catch (e) {
                refreshToasts();
                return;
            }
            await apply(resp);
            if (!url.startsWith('/ui/toasts')) {
                refreshToasts();
            }
        }

        async function apply(resp) {
            const target = resp.headers.get('X-Target');
            if (resp.headers.get('X-Close-Modal')) {
                closeModal();
            }
            if (!target) {
                return;
            }
            const el = document.querySelector(target);
            if (!el) {
                return;
            }
            el.innerHTML = await resp.text();
            if (target === '#modal') {
                backdrop.hidden = false;
            }
            if (target === '#toasts') {
                scheduleToastRefresh();
            }
            if (target === '#content') {
                markNav();
            }
        }

        function currentSection() {
            const section = document.querySelector('#content [data-section]');
            return section ? section.dataset.section : body.dataset.section;
        }

        function markNav() {
            const current = currentSection();
            document.querySelectorAll('[data-nav]').forEach(function (a) {
                a.classList.toggle('active', a.dataset.nav === current);
            });
        }

        function show(section) {
            request('GET', '/ui/sections/' + encodeURIComponent(section));
        }

        function refreshToasts() {
            fetch('/ui/toasts').then(apply);
        }

        function scheduleToastRefresh() {
            clearTimeout(toastTimer);
            if (document.querySelector('#toasts [data-toast]')) {
                toastTimer = setTimeout(refreshToasts, 1000);
            }
        }

        // re-render from the store, without asking the backend again
        function refreshViews() {
            const tables = document.querySelectorAll('#content [id^="table-"]');
            if (tables.length === 0) {
                fetch('/ui/sections/' + encodeURIComponent(currentSection()) + '?cached=1').then(apply);
                return;
            }
            tables.forEach(function (t) {
                fetch('/ui/' + t.id.slice('table-'.length) + '/table').then(apply);
            });
        }

        document.addEventListener('click', function (e) {
            const nav = e.target.closest('[data-nav]');
            if (nav) {
                e.preventDefault();
                history.replaceState(null, '', '#' + nav.dataset.nav);
                show(nav.dataset.nav);
                return;
            }
            if (e.target.closest('[data-close-modal]')) {
                e.preventDefault();
                closeModal();
                return;
            }
            const el = e.target.closest('[data-get],[data-post],[data-delete]');
            if (!el) {
                return;
            }
            e.preventDefault();
            if (el.dataset.confirm && !window.confirm(el.dataset.confirm)) {
                return;
            }
            if (el.dataset.get) {
                request('GET', el.dataset.get);
            } else if (el.dataset.post) {
                request('POST', el.dataset.post);
            } else {
                request('DELETE', el.dataset.delete);
            }
        });

        const filterTimers = new WeakMap();
        document.addEventListener('input', function (e) {
            const form = e.target.closest('form[data-filter]');
            if (!form) {
                return;
            }
            clearTimeout(filterTimers.get(form));
            filterTimers.set(form, setTimeout(function () {
                const params = new URLSearchParams(new FormData(form));
                request('GET', form.dataset.filter + '?' + params.toString());
            }, debounceMS));
        });

        document.addEventListener('submit', function (e) {
            const form = e.target.closest('form[data-submit],form[data-filter]');
            if (!form) {
                return;
            }
            e.preventDefault();
            if (form.dataset.submit) {
                request('POST', form.dataset.submit, form);
            }
        });

        document.addEventListener('keydown', function (e) {
            if (e.ctrlKey || e.metaKey || e.altKey) {
                return;
            }
            if (e.key === 'Escape') {
                closeModal();
                request('POST', '/ui/shortcut/Escape');
                return;
            }
            const tag = (e.target.tagName || '').toLowerCase();
            if (tag === 'input' || tag === 'textarea' || tag === 'select' || e.target.isContentEditable) {
                return;
            }
            if (['d', 'c', 'w', 's', 'p', 'r'].indexOf(e.key) >= 0) {
                e.preventDefault();
                request('POST', '/ui/shortcut/' + e.key);
            }
        });

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(proto + '//' + location.host + '/ws');
            ws.onmessage = function (msg) {
                const paths = JSON.parse(msg.data).paths || [];
                if (paths.some(function (p) { return p === '*' || p.startsWith('data'); })) {
                    refreshViews();
                }
                if (paths.indexOf('toasts') >= 0) {
                    refreshToasts();
                }
            };
            ws.onclose = function () {
                setTimeout(connect, 2000);
            };
        }

        show(location.hash.slice(1) || body.dataset.section || 'dashboard');
        refreshToasts();
        connect();
    })();
    </script>
</body>
</html>
`

package http

import (
	"net/http"
)

// frontendHTML is the embedded HTML for the query workbench.
// Single page with pure CSS and no build step.
const frontendHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>GDBee - Geodatabase Query Workbench</title>
    <style>
        :root {
            --primary: #ca8a04;
            --primary-dark: #a16207;
            --error: #dc2626;
            --bg: #fafaf9;
            --card: #ffffff;
            --text: #1c1917;
            --text-muted: #78716c;
            --border: #e7e5e4;
            --radius: 6px;
        }

        * { box-sizing: border-box; margin: 0; padding: 0; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.5;
        }

        header {
            display: flex;
            gap: 0.5rem;
            align-items: center;
            padding: 0.75rem 1rem;
            border-bottom: 1px solid var(--border);
            background: var(--card);
        }

        header h1 { font-size: 1.1rem; margin-right: 1rem; }

        main { display: grid; grid-template-columns: 16rem 1fr; min-height: calc(100vh - 3.5rem); }

        aside { border-right: 1px solid var(--border); padding: 0.75rem; overflow-y: auto; }
        aside li { list-style: none; cursor: pointer; padding: 0.15rem 0.25rem; border-radius: var(--radius); }
        aside li:hover { background: var(--border); }
        aside small { color: var(--text-muted); }

        section { padding: 0.75rem; display: flex; flex-direction: column; gap: 0.5rem; min-width: 0; }

        input, select, textarea, button {
            font: inherit;
            padding: 0.35rem 0.5rem;
            border: 1px solid var(--border);
            border-radius: var(--radius);
        }

        textarea { width: 100%; min-height: 8rem; font-family: ui-monospace, monospace; }

        button { background: var(--primary); color: #fff; border: none; cursor: pointer; }
        button:hover { background: var(--primary-dark); }
        button:disabled { opacity: 0.5; cursor: default; }

        .toolbar { display: flex; flex-wrap: wrap; gap: 0.5rem; align-items: center; }
        .status { color: var(--text-muted); font-size: 0.9rem; }
        .error { color: var(--error); white-space: pre-wrap; }

        .grid { overflow: auto; border: 1px solid var(--border); border-radius: var(--radius); max-height: 55vh; }
        table { border-collapse: collapse; font-size: 0.85rem; user-select: none; }
        th, td { border: 1px solid var(--border); padding: 0.2rem 0.4rem; white-space: nowrap; text-align: left; }
        th { background: var(--bg); position: sticky; top: 0; }
        td.sel { background: #fef08a; }

        pre { background: var(--card); border: 1px solid var(--border); padding: 0.5rem; overflow: auto; max-height: 30vh; }
    </style>
</head>
<body>
    <header>
        <h1>GDBee</h1>
        <input id="path" placeholder="path/to/data.gpkg" size="40">
        <button id="connect">Connect</button>
        <span id="session" class="status">Not connected</span>
    </header>
    <main>
        <aside>
            <ul id="catalog"></ul>
        </aside>
        <section>
            <textarea id="query" placeholder="SELECT * FROM ..."></textarea>
            <div class="toolbar">
                <button id="run" disabled>Run</button>
                <select id="dialect">
                    <option>SQLITE</option>
                    <option>OGRSQL</option>
                </select>
                <label><input type="checkbox" id="geometry" checked> Geometry</label>
                <button id="more" disabled>Fetch more</button>
                <button id="all" disabled>Fetch all</button>
                <button id="copy" disabled>Copy selection</button>
                <select id="format"></select>
                <button id="export" disabled>Export</button>
            </div>
            <div id="status" class="status"></div>
            <div id="error" class="error"></div>
            <div class="grid"><table id="result"></table></div>
            <pre id="output" hidden></pre>
        </section>
    </main>
    <script>
        const $ = id => document.getElementById(id);
        const api = '/api/v1';
        let session = null;
        let headers = [];
        let rows = [];
        let anchor = null;
        let range = null;

        async function call(method, url, body) {
            const opts = { method, headers: {} };
            if (body !== undefined) {
                opts.headers['Content-Type'] = 'application/json';
                opts.body = JSON.stringify(body);
            }
            const resp = await fetch(api + url, opts);
            if (resp.status === 204) return null;
            const type = resp.headers.get('Content-Type') || '';
            const data = type.includes('application/json') ? await resp.json() : await resp.text();
            if (!resp.ok) throw new Error(data.message || data);
            return data;
        }

        function showError(err) { $('error').textContent = err ? 'Error: ' + err.message : ''; }

        function enable(hasResult) {
            $('run').disabled = !session;
            ['copy', 'export'].forEach(id => $(id).disabled = !hasResult);
        }

        function updatePaging(page) {
            $('more').disabled = !page.can_fetch_more;
            $('all').disabled = !page.can_fetch_more;
        }

        function render() {
            const table = $('result');
            table.innerHTML = '';
            const head = table.insertRow();
            head.appendChild(document.createElement('th')).textContent = '';
            headers.forEach(h => head.appendChild(document.createElement('th')).textContent = h);
            rows.forEach((row, r) => {
                const tr = table.insertRow();
                tr.appendChild(document.createElement('th')).textContent = r + 1;
                row.forEach((cell, c) => {
                    const td = tr.insertCell();
                    td.textContent = cell;
                    td.dataset.r = r;
                    td.dataset.c = c;
                    if (range && r >= range.top_row && r <= range.bottom_row &&
                        c >= range.left_column && c <= range.right_column) {
                        td.className = 'sel';
                    }
                });
            });
        }

        $('result').addEventListener('mousedown', e => {
            if (!e.target.dataset.r) return;
            const r = +e.target.dataset.r, c = +e.target.dataset.c;
            if (e.shiftKey && anchor) {
                range = {
                    top_row: Math.min(anchor.r, r), bottom_row: Math.max(anchor.r, r),
                    left_column: Math.min(anchor.c, c), right_column: Math.max(anchor.c, c)
                };
            } else {
                anchor = { r, c };
                range = { top_row: r, bottom_row: r, left_column: c, right_column: c };
            }
            render();
        });

        async function loadCatalog() {
            const data = await call('GET', '/sessions/' + session + '/catalog');
            const list = $('catalog');
            list.innerHTML = '';
            data.items.forEach(item => {
                const li = document.createElement('li');
                li.innerHTML = item.name + ' <small>' + (item.geometry_type || item.kind) + '</small>';
                li.onclick = () => { $('query').value = 'SELECT * FROM "' + item.name + '"'; };
                list.appendChild(li);
            });
        }

        $('connect').onclick = async () => {
            showError(null);
            try {
                const info = await call('POST', '/sessions', { path: $('path').value });
                if (session) await call('DELETE', '/sessions/' + session).catch(() => {});
                session = info.id;
                $('session').textContent = info.path + ' (' + info.items + ' items)';
                headers = []; rows = []; range = null;
                render();
                enable(false);
                await loadCatalog();
            } catch (err) { showError(err); }
        };

        $('run').onclick = async () => {
            showError(null);
            $('status').textContent = 'Executing...';
            try {
                const data = await call('POST', '/sessions/' + session + '/query', {
                    query: $('query').value,
                    dialect: $('dialect').value,
                    include_geometry: $('geometry').checked
                });
                headers = data.page.headers;
                rows = data.page.rows;
                range = null;
                $('status').textContent = data.summary.status;
                $('output').hidden = true;
                render();
                enable(true);
                updatePaging(data.page);
            } catch (err) {
                $('status').textContent = '';
                showError(err);
            }
        };

        async function fetchRows(all) {
            showError(null);
            try {
                const page = await call('POST', '/sessions/' + session + '/fetch' + (all ? '?all=true' : ''));
                rows = rows.concat(page.rows);
                render();
                updatePaging(page);
            } catch (err) { showError(err); }
        }

        $('more').onclick = () => fetchRows(false);
        $('all').onclick = () => fetchRows(true);

        $('copy').onclick = async () => {
            if (!range) return;
            showError(null);
            try {
                const data = await call('POST', '/sessions/' + session + '/copy', { ranges: [range] });
                await navigator.clipboard.writeText(data.text).catch(() => {
                    $('output').textContent = data.text;
                    $('output').hidden = false;
                });
            } catch (err) { showError(err); }
        };

        $('export').onclick = async () => {
            showError(null);
            try {
                const text = await call('GET', '/sessions/' + session + '/export/' + $('format').value);
                $('output').textContent = text;
                $('output').hidden = false;
            } catch (err) { showError(err); }
        };

        $('query').addEventListener('keydown', e => {
            if ((e.ctrlKey || e.metaKey) && e.key === 'Enter' && !$('run').disabled) $('run').click();
        });

        call('GET', '/formats').then(data => {
            data.formats.forEach(f => $('format').appendChild(new Option(f, f)));
        }).catch(showError);
    </script>
</body>
</html>
`

// handleFrontend serves the query workbench frontend.
func (s *Server) handleFrontend(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(frontendHTML))
}
